package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/repository"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
)

func TestMemoryItemRepository_LoadAllIsolatesStoredState(t *testing.T) {
	repo := repository.NewMemoryItemRepository()
	repo.Seed([]*domain.Item{
		{
			ID:      "hammer",
			Name:    "Martelo",
			Batches: []domain.Batch{{ID: "b1", Quantity: 5}},
		},
	})
	ctx := context.Background()

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	// Mutating the loaded copy must not leak into the store.
	loaded[0].Name = "changed"
	loaded[0].Batches[0].Quantity = 0

	fresh, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Martelo", fresh[0].Name)
	assert.Equal(t, 5, fresh[0].Batches[0].Quantity)
}

func TestMemoryItemRepository_SaveAllReplacesCollection(t *testing.T) {
	repo := repository.NewMemoryItemRepository()
	repo.Seed([]*domain.Item{{ID: "a"}, {ID: "b"}})
	ctx := context.Background()

	require.NoError(t, repo.SaveAll(ctx, []*domain.Item{{ID: "c"}}))

	items, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ID)
}

func TestMemoryDebitRepository_NewestFirst(t *testing.T) {
	repo := repository.NewMemoryDebitRepository()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, &domain.Debit{ID: "first", Amount: decimal.NewFromInt(10)}))
	require.NoError(t, repo.Add(ctx, &domain.Debit{ID: "second", Amount: decimal.NewFromInt(20)}))

	debits, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, debits, 2)
	assert.Equal(t, "second", debits[0].ID)
}

func TestMemoryDebitRepository_Settle(t *testing.T) {
	repo := repository.NewMemoryDebitRepository()
	ctx := context.Background()
	settledAt := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Add(ctx, &domain.Debit{ID: "d1", Amount: decimal.NewFromInt(10)}))
	require.NoError(t, repo.Settle(ctx, "d1", settledAt))

	debit, err := repo.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, debit.Settled)
	require.NotNil(t, debit.SettledAt)
	assert.True(t, debit.SettledAt.Equal(settledAt))

	err = repo.Settle(ctx, "missing", settledAt)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
