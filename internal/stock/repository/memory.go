package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
)

// MemoryItemRepository provides in-memory item storage
type MemoryItemRepository struct {
	mu    sync.RWMutex
	items []*domain.Item
}

// NewMemoryItemRepository creates a new in-memory item repository
func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{}
}

// Verify interface compliance
var _ ItemRepository = (*MemoryItemRepository)(nil)

// Seed replaces the stored collection. Intended for startup and tests.
func (r *MemoryItemRepository) Seed(items []*domain.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = domain.CloneItems(items)
}

// LoadAll returns a deep copy of the stored collection so callers can mutate
// their working set without touching stored state.
func (r *MemoryItemRepository) LoadAll(ctx context.Context) ([]*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.CloneItems(r.items), nil
}

// SaveAll replaces the stored collection with a deep copy of items.
func (r *MemoryItemRepository) SaveAll(ctx context.Context, items []*domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = domain.CloneItems(items)
	return nil
}

// MemoryDebitRepository provides in-memory debit storage, newest first.
type MemoryDebitRepository struct {
	mu     sync.RWMutex
	debits []*domain.Debit
}

// NewMemoryDebitRepository creates a new in-memory debit repository
func NewMemoryDebitRepository() *MemoryDebitRepository {
	return &MemoryDebitRepository{}
}

// Verify interface compliance
var _ DebitRepository = (*MemoryDebitRepository)(nil)

// Add prepends a copy of the debit to the store.
func (r *MemoryDebitRepository) Add(ctx context.Context, debit *domain.Debit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := *debit
	r.debits = append([]*domain.Debit{&d}, r.debits...)
	return nil
}

// List returns copies of all stored debits.
func (r *MemoryDebitRepository) List(ctx context.Context) ([]*domain.Debit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Debit, len(r.debits))
	for i, d := range r.debits {
		c := *d
		out[i] = &c
	}
	return out, nil
}

// GetByID returns a copy of the debit with the given id.
func (r *MemoryDebitRepository) GetByID(ctx context.Context, id string) (*domain.Debit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.debits {
		if d.ID == id {
			c := *d
			return &c, nil
		}
	}
	return nil, errors.NotFound("debit")
}

// Settle marks the debit as settled at the given time.
func (r *MemoryDebitRepository) Settle(ctx context.Context, id string, settledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.debits {
		if d.ID == id {
			d.Settled = true
			at := settledAt
			d.SettledAt = &at
			return nil
		}
	}
	return errors.NotFound("debit")
}
