package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/events"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/repository"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
)

// DefaultHistoryLimit caps the per-item movement log.
const DefaultHistoryLimit = 50

// Engine is the stock and allocation engine. It owns no state of its own:
// every mutating operation loads the full item collection from the
// repository, works on that in-memory set, and saves it back only when the
// whole operation succeeded. A single mutex serializes mutations because any
// component change can touch arbitrarily many kits.
type Engine struct {
	mu           sync.Mutex
	items        repository.ItemRepository
	debits       repository.DebitRepository
	clock        Clock
	ids          IDGenerator
	log          *logger.Logger
	publisher    *events.StockEventPublisher
	policy       domain.DebitPolicy
	historyLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator overrides the id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithPublisher attaches an event publisher. May be nil.
func WithPublisher(p *events.StockEventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithDebitPolicy sets the loss pricing policy.
func WithDebitPolicy(p domain.DebitPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithHistoryLimit sets the per-item history cap.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.historyLimit = limit
		}
	}
}

// New creates a stock engine.
func New(items repository.ItemRepository, debits repository.DebitRepository, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		items:        items,
		debits:       debits,
		clock:        systemClock{},
		ids:          uuidGenerator{},
		log:          log.WithComponent("stock-engine"),
		policy:       domain.PolicyDepreciated,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// workingSet is the in-memory collection one operation runs against. Debits
// raised during the operation are staged here and written only after the
// item snapshot commits.
type workingSet struct {
	items   []*domain.Item
	byID    map[string]*domain.Item
	kits    kitIndex
	changed map[string]struct{}
	staged  []*domain.Debit
}

func (e *Engine) load(ctx context.Context) (*workingSet, error) {
	items, err := e.items.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	ws := &workingSet{
		items:   items,
		byID:    make(map[string]*domain.Item, len(items)),
		changed: make(map[string]struct{}),
	}
	for _, item := range items {
		ws.byID[item.ID] = item
	}
	ws.kits = buildKitIndex(items)

	// Stored stock figures are caches, never authoritative. Re-derive
	// everything up front, simple items before the kits that depend on
	// them, so operations gate on fresh numbers.
	for _, item := range items {
		if !item.IsKit() {
			recalculate(item, ws.byID)
		}
	}
	for _, item := range items {
		if item.IsKit() {
			recalculate(item, ws.byID)
		}
	}
	return ws, nil
}

func (ws *workingSet) item(id string) (*domain.Item, error) {
	item, ok := ws.byID[id]
	if !ok {
		return nil, errors.NotFound("item")
	}
	return item, nil
}

// touch re-derives an item's cached stock, propagates to every kit that
// references it, and records all of them as changed.
func (ws *workingSet) touch(item *domain.Item) {
	recalculate(item, ws.byID)
	ws.changed[item.ID] = struct{}{}
	for _, kitID := range ws.kits.propagate(item.ID, ws.byID) {
		ws.changed[kitID] = struct{}{}
	}
}

func (ws *workingSet) changedIDs() []string {
	ids := make([]string, 0, len(ws.changed))
	for id := range ws.changed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// commit persists the working set, writes any staged debits, and returns the
// changed item ids. Nothing is written before this point, so an operation
// that fails validation midway leaves no trace.
func (e *Engine) commit(ctx context.Context, ws *workingSet, operation string) ([]string, error) {
	if err := e.items.SaveAll(ctx, ws.items); err != nil {
		return nil, err
	}

	for _, debit := range ws.staged {
		if err := e.debits.Add(ctx, debit); err != nil {
			return nil, err
		}
		e.publisher.PublishDebitCreated(ctx, debit)
		e.log.Info().Str("debit_id", debit.ID).Str("holder_id", debit.HolderID).
			Str("amount", debit.Amount.StringFixed(2)).Msg("debit raised")
	}

	ids := ws.changedIDs()
	e.publisher.PublishStockChanged(ctx, operation, ids)
	return ids, nil
}

// pushHistory prepends a movement record to the item's capped log.
func (e *Engine) pushHistory(item *domain.Item, t domain.HistoryType, quantity int, details string) {
	entry := domain.HistoryEntry{
		Type:      t,
		Quantity:  quantity,
		Timestamp: e.clock.Now(),
		Details:   details,
	}
	item.History = append([]domain.HistoryEntry{entry}, item.History...)
	if len(item.History) > e.historyLimit {
		item.History = item.History[:e.historyLimit]
	}
}

// GetAllItems returns a consistent snapshot of the item collection.
func (e *Engine) GetAllItems(ctx context.Context) ([]*domain.Item, error) {
	return e.items.LoadAll(ctx)
}

// GetItemByID returns a snapshot of one item.
func (e *Engine) GetItemByID(ctx context.Context, id string) (*domain.Item, error) {
	items, err := e.items.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, errors.NotFound("item")
}
