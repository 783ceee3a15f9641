package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/repository"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
	"github.com/Pepe2244/almoxarifado-digital/pkg/testutil"
)

func TestPostgresItemRepository_LoadAll(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	stored := &domain.Item{ID: "hammer", Name: "Martelo", TotalStock: 5, CurrentStock: 5}
	doc, err := json.Marshal(stored)
	require.NoError(t, err)

	mockDB.ExpectQuery(`SELECT doc FROM stock_items ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	repo := repository.NewPostgresItemRepository(mockDB.DB)
	items, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hammer", items[0].ID)
	assert.Equal(t, 5, items[0].TotalStock)

	assert.NoError(t, mockDB.Mock.ExpectationsWereMet())
}

func TestPostgresItemRepository_SaveAllUpsertsAndPrunes(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	items := []*domain.Item{
		{ID: "hammer", Name: "Martelo"},
		{ID: "saw", Name: "Serrote"},
	}

	mockDB.Mock.ExpectBegin()
	mockDB.ExpectExec(`INSERT INTO stock_items`).
		WithArgs("hammer", "Martelo", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec(`INSERT INTO stock_items`).
		WithArgs("saw", "Serrote", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec(`DELETE FROM stock_items WHERE NOT (id = ANY($1))`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.Mock.ExpectCommit()

	repo := repository.NewPostgresItemRepository(mockDB.DB)
	require.NoError(t, repo.SaveAll(context.Background(), items))

	assert.NoError(t, mockDB.Mock.ExpectationsWereMet())
}

func TestPostgresDebitRepository_AddFormatsAmountAsCents(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	createdAt := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	debit := &domain.Debit{
		ID:        "d1",
		HolderID:  "carlos",
		ItemID:    "helmet",
		ItemName:  "Capacete",
		Quantity:  1,
		Amount:    decimal.RequireFromString("49.5"),
		Reason:    "loss",
		CreatedAt: createdAt,
	}

	mockDB.ExpectExec(`INSERT INTO stock_debits`).
		WithArgs("d1", "carlos", "helmet", "Capacete", 1, "49.50", "loss", createdAt, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := repository.NewPostgresDebitRepository(mockDB.DB)
	require.NoError(t, repo.Add(context.Background(), debit))

	assert.NoError(t, mockDB.Mock.ExpectationsWereMet())
}

func TestPostgresDebitRepository_GetByIDNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery(`SELECT * FROM stock_debits WHERE id = $1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := repository.NewPostgresDebitRepository(mockDB.DB)
	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestPostgresDebitRepository_SettleMissingRow(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	settledAt := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectExec(`UPDATE stock_debits SET settled = TRUE, settled_at = $2 WHERE id = $1`).
		WithArgs("missing", settledAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := repository.NewPostgresDebitRepository(mockDB.DB)
	err := repo.Settle(context.Background(), "missing", settledAt)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
