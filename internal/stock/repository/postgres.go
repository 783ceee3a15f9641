package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/pkg/database"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresItemRepository persists the item collection as one JSONB document
// per item. The engine treats items as an opaque aggregate snapshot, so no
// relational schema for batches or allocations is needed.
type PostgresItemRepository struct {
	db *database.DB
}

// NewPostgresItemRepository creates a new Postgres-backed item repository
func NewPostgresItemRepository(db *database.DB) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

// Verify interface compliance
var _ ItemRepository = (*PostgresItemRepository)(nil)

// LoadAll loads the full item collection.
func (r *PostgresItemRepository) LoadAll(ctx context.Context) ([]*domain.Item, error) {
	var docs [][]byte
	query := `SELECT doc FROM stock_items ORDER BY name`
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, err
	}

	items := make([]*domain.Item, 0, len(docs))
	for _, doc := range docs {
		var item domain.Item
		if err := json.Unmarshal(doc, &item); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, nil
}

// SaveAll writes the full collection in one transaction: every item is
// upserted and rows absent from the new snapshot are deleted.
func (r *PostgresItemRepository) SaveAll(ctx context.Context, items []*domain.Item) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		upsert := `
			INSERT INTO stock_items (id, name, doc, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (id) DO UPDATE SET name = $2, doc = $3, updated_at = NOW()
		`

		ids := make([]string, 0, len(items))
		for _, item := range items {
			doc, err := json.Marshal(item)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, upsert, item.ID, item.Name, doc); err != nil {
				return err
			}
			ids = append(ids, item.ID)
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM stock_items WHERE NOT (id = ANY($1))`, pq.Array(ids))
		return err
	})
}

// PostgresDebitRepository stores debits as rows.
type PostgresDebitRepository struct {
	db *database.DB
}

// NewPostgresDebitRepository creates a new Postgres-backed debit repository
func NewPostgresDebitRepository(db *database.DB) *PostgresDebitRepository {
	return &PostgresDebitRepository{db: db}
}

// Verify interface compliance
var _ DebitRepository = (*PostgresDebitRepository)(nil)

type debitRow struct {
	ID        string       `db:"id"`
	HolderID  string       `db:"holder_id"`
	ItemID    string       `db:"item_id"`
	ItemName  string       `db:"item_name"`
	Quantity  int          `db:"quantity"`
	Amount    string       `db:"amount"`
	Reason    string       `db:"reason"`
	CreatedAt time.Time    `db:"created_at"`
	Settled   bool         `db:"settled"`
	SettledAt sql.NullTime `db:"settled_at"`
}

func (row *debitRow) toDomain() (*domain.Debit, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return nil, err
	}

	debit := &domain.Debit{
		ID:        row.ID,
		HolderID:  row.HolderID,
		ItemID:    row.ItemID,
		ItemName:  row.ItemName,
		Quantity:  row.Quantity,
		Amount:    amount,
		Reason:    row.Reason,
		CreatedAt: row.CreatedAt,
		Settled:   row.Settled,
	}
	if row.SettledAt.Valid {
		at := row.SettledAt.Time
		debit.SettledAt = &at
	}
	return debit, nil
}

// Add inserts a debit.
func (r *PostgresDebitRepository) Add(ctx context.Context, debit *domain.Debit) error {
	query := `
		INSERT INTO stock_debits (
			id, holder_id, item_id, item_name, quantity, amount, reason, created_at, settled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		debit.ID, debit.HolderID, debit.ItemID, debit.ItemName,
		debit.Quantity, debit.Amount.StringFixed(2), debit.Reason,
		debit.CreatedAt, debit.Settled,
	)
	return err
}

// List returns all debits, newest first.
func (r *PostgresDebitRepository) List(ctx context.Context) ([]*domain.Debit, error) {
	var rows []debitRow
	query := `SELECT * FROM stock_debits ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	debits := make([]*domain.Debit, 0, len(rows))
	for i := range rows {
		debit, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		debits = append(debits, debit)
	}
	return debits, nil
}

// GetByID returns a debit by id.
func (r *PostgresDebitRepository) GetByID(ctx context.Context, id string) (*domain.Debit, error) {
	var row debitRow
	query := `SELECT * FROM stock_debits WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("debit")
		}
		return nil, err
	}
	return row.toDomain()
}

// Settle marks a debit as settled.
func (r *PostgresDebitRepository) Settle(ctx context.Context, id string, settledAt time.Time) error {
	query := `UPDATE stock_debits SET settled = TRUE, settled_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, settledAt)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("debit")
	}

	return nil
}
