package repository

import (
	"context"
	"time"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
)

// ItemRepository supplies the engine's working set. The engine loads the full
// item collection before an operation and saves it back after a successful
// one; implementations must hand out copies that the caller may mutate
// freely.
type ItemRepository interface {
	LoadAll(ctx context.Context) ([]*domain.Item, error)
	SaveAll(ctx context.Context, items []*domain.Item) error
}

// DebitRepository stores the financial liabilities raised by losses.
type DebitRepository interface {
	Add(ctx context.Context, debit *domain.Debit) error
	List(ctx context.Context) ([]*domain.Debit, error)
	GetByID(ctx context.Context, id string) (*domain.Debit, error)
	Settle(ctx context.Context, id string, settledAt time.Time) error
}
