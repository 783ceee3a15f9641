package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/engine"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/repository"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type seqIDs struct {
	n int
}

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("gen-%03d", g.n)
}

type testRig struct {
	engine *engine.Engine
	items  *repository.MemoryItemRepository
	debits *repository.MemoryDebitRepository
	clock  *fakeClock
}

func newTestRig(t *testing.T, items []*domain.Item, opts ...engine.Option) *testRig {
	t.Helper()

	itemRepo := repository.NewMemoryItemRepository()
	itemRepo.Seed(items)
	debitRepo := repository.NewMemoryDebitRepository()

	clock := &fakeClock{now: time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)}
	opts = append([]engine.Option{
		engine.WithClock(clock),
		engine.WithIDGenerator(&seqIDs{}),
	}, opts...)

	return &testRig{
		engine: engine.New(itemRepo, debitRepo, logger.Nop(), opts...),
		items:  itemRepo,
		debits: debitRepo,
		clock:  clock,
	}
}

func (r *testRig) item(t *testing.T, id string) *domain.Item {
	t.Helper()
	item, err := r.engine.GetItemByID(context.Background(), id)
	require.NoError(t, err)
	return item
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func simpleItem(id, name string, price float64, batches ...domain.Batch) *domain.Item {
	total := 0
	for _, b := range batches {
		total += b.Quantity
	}
	return &domain.Item{
		ID:           id,
		Name:         name,
		Kind:         domain.Simple,
		Category:     "Material",
		Unit:         "un",
		Price:        price,
		Batches:      batches,
		TotalStock:   total,
		CurrentStock: total,
	}
}

func batch(id string, quantity int, acquired time.Time, shelfLifeDays int) domain.Batch {
	return domain.Batch{
		ID:              id,
		Quantity:        quantity,
		AcquisitionDate: acquired,
		ShelfLifeDays:   shelfLifeDays,
	}
}

// --- Batch ledger ---

func TestAddBatch_RecalculatesStock(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("cement", "Cimento", 35.0, batch("b1", 5, date(2026, time.January, 10), 90)),
	})

	created, changed, err := rig.engine.AddBatch(context.Background(), engine.AddBatchParams{
		ItemID:          "cement",
		Quantity:        10,
		AcquisitionDate: date(2026, time.March, 1),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, []string{"cement"}, changed)

	item := rig.item(t, "cement")
	assert.Equal(t, 15, item.TotalStock)
	assert.Equal(t, 15, item.CurrentStock)
	assert.Len(t, item.Batches, 2)
	require.NotEmpty(t, item.History)
	assert.Equal(t, domain.HistoryTypeEntry, item.History[0].Type)
}

func TestAddBatch_ShelfLifeOverrideWinsOverItemDefault(t *testing.T) {
	item := simpleItem("glue", "Cola", 12.0)
	item.ShelfLifeDays = 365
	rig := newTestRig(t, []*domain.Item{item})

	created, _, err := rig.engine.AddBatch(context.Background(), engine.AddBatchParams{
		ItemID:                "glue",
		Quantity:              3,
		AcquisitionDate:       date(2026, time.March, 1),
		ShelfLifeDaysOverride: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, 30, created.ShelfLifeDays)

	created, _, err = rig.engine.AddBatch(context.Background(), engine.AddBatchParams{
		ItemID:          "glue",
		Quantity:        3,
		AcquisitionDate: date(2026, time.March, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 365, created.ShelfLifeDays)
}

func TestAddBatch_RejectsInvalidDates(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{simpleItem("sand", "Areia", 8.0)})
	ctx := context.Background()

	cases := []struct {
		name   string
		params engine.AddBatchParams
	}{
		{
			name:   "zero quantity",
			params: engine.AddBatchParams{ItemID: "sand", Quantity: 0, AcquisitionDate: date(2026, time.March, 1)},
		},
		{
			name:   "missing acquisition date",
			params: engine.AddBatchParams{ItemID: "sand", Quantity: 5},
		},
		{
			name:   "future acquisition date",
			params: engine.AddBatchParams{ItemID: "sand", Quantity: 5, AcquisitionDate: date(2026, time.March, 11)},
		},
		{
			name: "manufacturing after acquisition",
			params: func() engine.AddBatchParams {
				mfg := date(2026, time.March, 5)
				return engine.AddBatchParams{ItemID: "sand", Quantity: 5, AcquisitionDate: date(2026, time.March, 1), ManufacturingDate: &mfg}
			}(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := rig.engine.AddBatch(ctx, tc.params)
			assert.ErrorIs(t, err, errors.ErrValidation)
		})
	}

	item := rig.item(t, "sand")
	assert.Empty(t, item.Batches, "failed adds must not leak batches")
}

func TestAddBatch_AcceptsAcquisitionLaterToday(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{simpleItem("sand", "Areia", 8.0)})

	// Clock reads noon; a timestamp later the same day is not "future".
	_, _, err := rig.engine.AddBatch(context.Background(), engine.AddBatchParams{
		ItemID:          "sand",
		Quantity:        2,
		AcquisitionDate: time.Date(2026, time.March, 10, 18, 30, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
}

func TestAddBatch_RejectsKit(t *testing.T) {
	kit := &domain.Item{ID: "kit", Name: "Kit", Kind: domain.Kit}
	rig := newTestRig(t, []*domain.Item{kit})

	_, _, err := rig.engine.AddBatch(context.Background(), engine.AddBatchParams{
		ItemID:          "kit",
		Quantity:        1,
		AcquisitionDate: date(2026, time.March, 1),
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestRemoveBatch_AlwaysSucceedsForExistingBatch(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("drill", "Furadeira", 450.0, batch("b1", 2, date(2026, time.January, 5), 0)),
	})

	_, err := rig.engine.RemoveBatch(context.Background(), "drill", "b1")
	require.NoError(t, err)

	item := rig.item(t, "drill")
	assert.Empty(t, item.Batches)
	assert.Equal(t, 0, item.TotalStock)
	assert.Equal(t, domain.HistoryTypeAdjustment, item.History[0].Type)
	assert.Equal(t, -2, item.History[0].Quantity)
}

func TestRemoveBatch_NotFound(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{simpleItem("drill", "Furadeira", 450.0)})

	_, err := rig.engine.RemoveBatch(context.Background(), "drill", "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

// --- FEFO distribution ---

func TestDistribute_ConsumesEarliestExpiryFirst(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("paint", "Tinta", 90.0,
			batch("late", 10, date(2026, time.February, 1), 365),
			batch("early", 10, date(2026, time.January, 1), 30),
		),
	})

	_, err := rig.engine.Distribute(context.Background(), "paint", 12)
	require.NoError(t, err)

	item := rig.item(t, "paint")
	require.Len(t, item.Batches, 1, "fully consumed batch must be pruned")
	assert.Equal(t, "late", item.Batches[0].ID)
	assert.Equal(t, 8, item.Batches[0].Quantity)
	assert.Equal(t, 8, item.TotalStock)
}

func TestDistribute_ManufacturingDateDrivesExpiry(t *testing.T) {
	mfg := date(2025, time.December, 1)
	b1 := batch("acquired-first", 5, date(2026, time.January, 1), 90)
	b2 := batch("made-earlier", 5, date(2026, time.February, 1), 90)
	b2.ManufacturingDate = &mfg

	rig := newTestRig(t, []*domain.Item{simpleItem("resin", "Resina", 60.0, b1, b2)})

	_, err := rig.engine.Distribute(context.Background(), "resin", 5)
	require.NoError(t, err)

	item := rig.item(t, "resin")
	require.Len(t, item.Batches, 1)
	assert.Equal(t, "acquired-first", item.Batches[0].ID,
		"batch manufactured earlier expires earlier and must go first")
}

func TestDistribute_BatchesWithoutShelfLifeGoLast(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("tape", "Fita", 5.0,
			batch("never", 10, date(2026, time.January, 1), 0),
			batch("expiring", 10, date(2026, time.February, 1), 60),
		),
	})

	_, err := rig.engine.Distribute(context.Background(), "tape", 10)
	require.NoError(t, err)

	item := rig.item(t, "tape")
	require.Len(t, item.Batches, 1)
	assert.Equal(t, "never", item.Batches[0].ID)
}

func TestDistribute_InsufficientStockLeavesStateUntouched(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("paint", "Tinta", 90.0, batch("b1", 4, date(2026, time.January, 1), 30)),
	})

	_, err := rig.engine.Distribute(context.Background(), "paint", 5)
	require.ErrorIs(t, err, errors.ErrInsufficientStock)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "4", appErr.Details["available"])

	item := rig.item(t, "paint")
	assert.Equal(t, 4, item.Batches[0].Quantity)
	assert.Empty(t, item.History)
}

func TestDistribute_ConservationAcrossBatches(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("screws", "Parafuso", 0.5,
			batch("a", 7, date(2026, time.January, 1), 0),
			batch("b", 9, date(2026, time.January, 2), 0),
			batch("c", 4, date(2026, time.January, 3), 0),
		),
	})

	_, err := rig.engine.Distribute(context.Background(), "screws", 11)
	require.NoError(t, err)

	item := rig.item(t, "screws")
	remaining := 0
	for _, b := range item.Batches {
		remaining += b.Quantity
	}
	assert.Equal(t, 9, remaining)
	assert.Equal(t, 9, item.TotalStock)
}

func TestDistribute_ReservedLoanUnitsAreNotAvailable(t *testing.T) {
	item := simpleItem("drill", "Furadeira", 450.0, batch("b1", 3, date(2026, time.January, 1), 0))
	item.OnLoanCount = 2
	item.CurrentStock = 1
	rig := newTestRig(t, []*domain.Item{item})

	_, err := rig.engine.Distribute(context.Background(), "drill", 2)
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)

	_, err = rig.engine.Distribute(context.Background(), "drill", 1)
	assert.NoError(t, err)
}

// --- Kit derivation ---

func kitFixture() []*domain.Item {
	helmet := simpleItem("helmet", "Capacete", 30.0, batch("hb", 4, date(2026, time.January, 1), 0))
	rope := simpleItem("rope", "Corda", 120.0, batch("rb", 3, date(2026, time.January, 1), 0))
	kit := &domain.Item{
		ID:   "climb-kit",
		Name: "Kit Altura",
		Kind: domain.Kit,
		Components: []domain.KitComponent{
			{ItemID: "helmet", RequiredQuantity: 2},
			{ItemID: "rope", RequiredQuantity: 1},
		},
		TotalStock:   2,
		CurrentStock: 2,
	}
	return []*domain.Item{helmet, rope, kit}
}

func TestKitStock_DerivesFromScarcestComponent(t *testing.T) {
	rig := newTestRig(t, kitFixture())

	// Any mutation of a component refreshes every kit listing it.
	_, _, err := rig.engine.AddBatch(context.Background(), engine.AddBatchParams{
		ItemID:          "rope",
		Quantity:        7,
		AcquisitionDate: date(2026, time.March, 1),
	})
	require.NoError(t, err)

	kit := rig.item(t, "climb-kit")
	// helmet: floor(4/2)=2, rope: floor(10/1)=10 -> min is 2
	assert.Equal(t, 2, kit.CurrentStock)
	assert.Equal(t, 2, kit.TotalStock)
}

func TestKitStock_PropagatesOnComponentConsumption(t *testing.T) {
	rig := newTestRig(t, kitFixture())

	changed, err := rig.engine.Distribute(context.Background(), "helmet", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"climb-kit", "helmet"}, changed)

	kit := rig.item(t, "climb-kit")
	// helmet down to 1: floor(1/2)=0
	assert.Equal(t, 0, kit.CurrentStock)
}

func TestKitStock_UnresolvableComponentMeansNoPotential(t *testing.T) {
	kit := &domain.Item{
		ID:   "ghost-kit",
		Name: "Kit Fantasma",
		Kind: domain.Kit,
		Components: []domain.KitComponent{
			{ItemID: "does-not-exist", RequiredQuantity: 1},
		},
		OnLoanCount: 1,
	}
	other := simpleItem("bolt", "Parafuso", 1.0)
	rig := newTestRig(t, []*domain.Item{kit, other})

	_, _, err := rig.engine.AddBatch(context.Background(), engine.AddBatchParams{
		ItemID:          "bolt",
		Quantity:        1,
		AcquisitionDate: date(2026, time.March, 1),
	})
	require.NoError(t, err)

	got := rig.item(t, "ghost-kit")
	assert.Equal(t, 1, got.TotalStock, "loaned units still exist")
	assert.Equal(t, 0, got.CurrentStock)
}

// --- Allocation lifecycle ---

func TestOpenAllocation_SimpleItemReservesWithoutTouchingBatches(t *testing.T) {
	item := simpleItem("drill", "Furadeira", 450.0, batch("b1", 3, date(2026, time.January, 1), 0))
	item.Returnable = true
	rig := newTestRig(t, []*domain.Item{item})

	alloc, changed, err := rig.engine.OpenAllocation(context.Background(), engine.OpenAllocationParams{
		ItemID:   "drill",
		Quantity: 2,
		HolderID: "carlos",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"drill"}, changed)
	assert.Equal(t, "carlos", alloc.HolderID)

	got := rig.item(t, "drill")
	assert.Equal(t, 3, got.Batches[0].Quantity, "loans must not consume batches")
	assert.Equal(t, 2, got.OnLoanCount)
	assert.Equal(t, 3, got.TotalStock)
	assert.Equal(t, 1, got.CurrentStock)
	require.Len(t, got.Allocations, 1)
}

func TestOpenAllocation_KitConsumesComponents(t *testing.T) {
	rig := newTestRig(t, kitFixture())

	_, changed, err := rig.engine.OpenAllocation(context.Background(), engine.OpenAllocationParams{
		ItemID:   "climb-kit",
		Quantity: 1,
		HolderID: "ana",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"climb-kit", "helmet", "rope"}, changed)

	helmet := rig.item(t, "helmet")
	rope := rig.item(t, "rope")
	kit := rig.item(t, "climb-kit")

	assert.Equal(t, 2, helmet.TotalStock, "2 helmets consumed per kit")
	assert.Equal(t, 2, rope.TotalStock)
	assert.Equal(t, 1, kit.OnLoanCount)
	// remaining potential: floor(2/2)=1, floor(2/1)=2 -> 1; plus 1 on loan
	assert.Equal(t, 2, kit.TotalStock)
	assert.Equal(t, 1, kit.CurrentStock)
}

func TestOpenAllocation_InsufficientKitStock(t *testing.T) {
	rig := newTestRig(t, kitFixture())

	_, _, err := rig.engine.OpenAllocation(context.Background(), engine.OpenAllocationParams{
		ItemID:   "climb-kit",
		Quantity: 3,
		HolderID: "ana",
	})
	require.ErrorIs(t, err, errors.ErrInsufficientStock)

	helmet := rig.item(t, "helmet")
	assert.Equal(t, 4, helmet.TotalStock, "failed open must not consume components")
}

func TestOpenAllocation_RequiresHolder(t *testing.T) {
	rig := newTestRig(t, kitFixture())

	_, _, err := rig.engine.OpenAllocation(context.Background(), engine.OpenAllocationParams{
		ItemID:   "climb-kit",
		Quantity: 1,
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestReturnAllocation_SimpleItemRoundTrip(t *testing.T) {
	item := simpleItem("drill", "Furadeira", 450.0, batch("b1", 3, date(2026, time.January, 1), 0))
	item.Returnable = true
	rig := newTestRig(t, []*domain.Item{item})
	ctx := context.Background()

	alloc, _, err := rig.engine.OpenAllocation(ctx, engine.OpenAllocationParams{
		ItemID: "drill", Quantity: 2, HolderID: "carlos",
	})
	require.NoError(t, err)

	_, err = rig.engine.ReturnAllocation(ctx, "drill", alloc.ID)
	require.NoError(t, err)

	got := rig.item(t, "drill")
	assert.Equal(t, 0, got.OnLoanCount)
	assert.Equal(t, 3, got.TotalStock)
	assert.Equal(t, 3, got.CurrentStock)
	assert.Empty(t, got.Allocations)
}

func TestReturnAllocation_KitReaddsComponentsPreservingAge(t *testing.T) {
	items := kitFixture()
	// Give the helmet an entry history record so the return date heuristic
	// has something older than today to latch onto.
	entryDate := date(2026, time.January, 1)
	items[0].History = []domain.HistoryEntry{
		{Type: domain.HistoryTypeEntry, Quantity: 4, Timestamp: entryDate},
	}
	rig := newTestRig(t, items)
	ctx := context.Background()

	alloc, _, err := rig.engine.OpenAllocation(ctx, engine.OpenAllocationParams{
		ItemID: "climb-kit", Quantity: 1, HolderID: "ana",
	})
	require.NoError(t, err)

	_, err = rig.engine.ReturnAllocation(ctx, "climb-kit", alloc.ID)
	require.NoError(t, err)

	helmet := rig.item(t, "helmet")
	assert.Equal(t, 4, helmet.TotalStock)

	var returnBatch *domain.Batch
	for i := range helmet.Batches {
		if helmet.Batches[i].IsReturn {
			returnBatch = &helmet.Batches[i]
		}
	}
	require.NotNil(t, returnBatch, "returned units come back as a return batch")
	assert.Equal(t, 2, returnBatch.Quantity)
	assert.True(t, returnBatch.AcquisitionDate.Equal(entryDate),
		"return batch must carry the original entry date, not today")

	kit := rig.item(t, "climb-kit")
	assert.Equal(t, 0, kit.OnLoanCount)
	assert.Equal(t, 2, kit.CurrentStock)
}

func TestReturnAllocation_NotFound(t *testing.T) {
	rig := newTestRig(t, kitFixture())

	_, err := rig.engine.ReturnAllocation(context.Background(), "climb-kit", "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestReturnAllocationWithLoss_PartialLoss(t *testing.T) {
	rig := newTestRig(t, kitFixture())
	ctx := context.Background()

	alloc, _, err := rig.engine.OpenAllocation(ctx, engine.OpenAllocationParams{
		ItemID: "climb-kit", Quantity: 2, HolderID: "ana",
	})
	require.NoError(t, err)

	// 2 kits out: 4 helmets, 2 ropes. One helmet comes back broken.
	_, err = rig.engine.ReturnAllocationWithLoss(ctx, "climb-kit", alloc.ID, map[string]int{
		"helmet": 1,
	})
	require.NoError(t, err)

	helmet := rig.item(t, "helmet")
	rope := rig.item(t, "rope")
	assert.Equal(t, 3, helmet.TotalStock, "3 of 4 helmets returned")
	assert.Equal(t, 3, rope.TotalStock, "ropes returned in full")

	debits, err := rig.engine.ListDebits(ctx)
	require.NoError(t, err)
	require.Len(t, debits, 1)
	assert.Equal(t, "helmet", debits[0].ItemID)
	assert.Equal(t, "ana", debits[0].HolderID)
	assert.Equal(t, 1, debits[0].Quantity)
	assert.Equal(t, "30.00", debits[0].Amount.StringFixed(2))
	assert.Contains(t, debits[0].Reason, "Kit Altura")

	kit := rig.item(t, "climb-kit")
	assert.Equal(t, 0, kit.OnLoanCount)
	assert.Empty(t, kit.Allocations)
}

func TestReturnAllocationWithLoss_RejectsExcessiveLoss(t *testing.T) {
	rig := newTestRig(t, kitFixture())
	ctx := context.Background()

	alloc, _, err := rig.engine.OpenAllocation(ctx, engine.OpenAllocationParams{
		ItemID: "climb-kit", Quantity: 1, HolderID: "ana",
	})
	require.NoError(t, err)

	_, err = rig.engine.ReturnAllocationWithLoss(ctx, "climb-kit", alloc.ID, map[string]int{
		"helmet": 3, // only 2 went out
	})
	require.ErrorIs(t, err, errors.ErrValidation)

	kit := rig.item(t, "climb-kit")
	assert.Equal(t, 1, kit.OnLoanCount, "failed return must leave the allocation open")

	debits, err := rig.engine.ListDebits(ctx)
	require.NoError(t, err)
	assert.Empty(t, debits)
}

func TestReturnAllocationWithLoss_RejectsUnknownComponent(t *testing.T) {
	rig := newTestRig(t, kitFixture())
	ctx := context.Background()

	alloc, _, err := rig.engine.OpenAllocation(ctx, engine.OpenAllocationParams{
		ItemID: "climb-kit", Quantity: 1, HolderID: "ana",
	})
	require.NoError(t, err)

	_, err = rig.engine.ReturnAllocationWithLoss(ctx, "climb-kit", alloc.ID, map[string]int{
		"stranger": 1,
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestReturnAllocationWithLoss_RejectsSimpleItem(t *testing.T) {
	item := simpleItem("drill", "Furadeira", 450.0, batch("b1", 1, date(2026, time.January, 1), 0))
	item.Returnable = true
	rig := newTestRig(t, []*domain.Item{item})
	ctx := context.Background()

	alloc, _, err := rig.engine.OpenAllocation(ctx, engine.OpenAllocationParams{
		ItemID: "drill", Quantity: 1, HolderID: "carlos",
	})
	require.NoError(t, err)

	_, err = rig.engine.ReturnAllocationWithLoss(ctx, "drill", alloc.ID, map[string]int{"drill": 1})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

// --- History ---

func TestHistory_NewestFirstAndCapped(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{simpleItem("nail", "Prego", 0.1)},
		engine.WithHistoryLimit(3))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, _, err := rig.engine.AddBatch(ctx, engine.AddBatchParams{
			ItemID:          "nail",
			Quantity:        i,
			AcquisitionDate: date(2026, time.March, 1),
		})
		require.NoError(t, err)
	}

	item := rig.item(t, "nail")
	require.Len(t, item.History, 3)
	assert.Equal(t, 5, item.History[0].Quantity, "newest entry first")
	assert.Equal(t, 3, item.History[2].Quantity)
}

// --- Stored cache normalization ---

func TestLoad_StaleStoredTotalsAreRederived(t *testing.T) {
	// Batches say five units but the stored figures say zero, and vice
	// versa for the second item. The derived numbers must win before any
	// availability check runs.
	undercounted := simpleItem("cement", "Cimento", 35.0,
		batch("b1", 5, date(2026, time.January, 10), 0))
	undercounted.TotalStock = 0
	undercounted.CurrentStock = 0

	inflated := simpleItem("sand", "Areia", 12.0,
		batch("b2", 2, date(2026, time.January, 10), 0))
	inflated.TotalStock = 10
	inflated.CurrentStock = 10

	rig := newTestRig(t, []*domain.Item{undercounted, inflated})
	ctx := context.Background()

	_, err := rig.engine.Distribute(ctx, "cement", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, rig.item(t, "cement").TotalStock)

	_, err = rig.engine.Distribute(ctx, "sand", 3)
	require.ErrorIs(t, err, errors.ErrInsufficientStock)
	assert.Equal(t, 2, rig.item(t, "sand").TotalStock)
}

// --- Count reconciliation ---

func TestAdjustStock_SurplusCreatesAdjustmentBatch(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("cement", "Cimento", 35.0, batch("b1", 5, date(2026, time.January, 10), 0)),
	})

	changed, err := rig.engine.AdjustStock(context.Background(), engine.AdjustStockParams{
		ItemID:          "cement",
		CountedQuantity: 8,
		Reason:          engine.AdjustReasonEntryNotRegistered,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cement"}, changed)

	item := rig.item(t, "cement")
	assert.Equal(t, 8, item.TotalStock)
	require.Len(t, item.Batches, 2)
	assert.Equal(t, 3, item.Batches[1].Quantity)
	assert.Equal(t, rig.clock.Now(), item.Batches[1].AcquisitionDate)

	require.NotEmpty(t, item.History)
	assert.Equal(t, domain.HistoryTypeEntry, item.History[0].Type)
	assert.Equal(t, 3, item.History[0].Quantity)
}

func TestAdjustStock_SurplusExtendsNamedBatch(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("cement", "Cimento", 35.0, batch("b1", 5, date(2026, time.January, 10), 0)),
	})

	_, err := rig.engine.AdjustStock(context.Background(), engine.AdjustStockParams{
		ItemID:          "cement",
		CountedQuantity: 7,
		BatchID:         "b1",
	})
	require.NoError(t, err)

	item := rig.item(t, "cement")
	require.Len(t, item.Batches, 1)
	assert.Equal(t, 7, item.Batches[0].Quantity)
	assert.Equal(t, domain.HistoryTypeAdjustment, item.History[0].Type)
	assert.Equal(t, "count adjusted from 5 to 7", item.History[0].Details)
}

func TestAdjustStock_ShortageConsumesEarliestExpiryFirst(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("glove", "Luva", 8.0,
			batch("old", 4, date(2025, time.June, 1), 120),
			batch("new", 4, date(2026, time.February, 1), 120)),
	})

	_, err := rig.engine.AdjustStock(context.Background(), engine.AdjustStockParams{
		ItemID:          "glove",
		CountedQuantity: 5,
		Reason:          engine.AdjustReasonLossOrDamage,
	})
	require.NoError(t, err)

	item := rig.item(t, "glove")
	assert.Equal(t, 5, item.TotalStock)
	require.Len(t, item.Batches, 2)
	assert.Equal(t, 1, item.Batches[0].Quantity, "oldest expiry consumed first")
	assert.Equal(t, 4, item.Batches[1].Quantity)
	assert.Equal(t, domain.HistoryTypeLoss, item.History[0].Type)
	assert.Equal(t, -3, item.History[0].Quantity)
}

func TestAdjustStock_MatchingCountOnlyRecordsHistory(t *testing.T) {
	rig := newTestRig(t, []*domain.Item{
		simpleItem("cement", "Cimento", 35.0, batch("b1", 5, date(2026, time.January, 10), 0)),
	})

	_, err := rig.engine.AdjustStock(context.Background(), engine.AdjustStockParams{
		ItemID:          "cement",
		CountedQuantity: 5,
	})
	require.NoError(t, err)

	item := rig.item(t, "cement")
	assert.Equal(t, 5, item.TotalStock)
	require.Len(t, item.Batches, 1)
	require.Len(t, item.History, 1)
	assert.Equal(t, domain.HistoryTypeAdjustment, item.History[0].Type)
	assert.Equal(t, 0, item.History[0].Quantity)
}

func TestAdjustStock_CountExcludesLoanedUnits(t *testing.T) {
	item := simpleItem("drill", "Furadeira", 250.0,
		batch("b1", 5, date(2026, time.January, 10), 0))
	item.Returnable = true
	rig := newTestRig(t, []*domain.Item{item})
	ctx := context.Background()

	_, _, err := rig.engine.OpenAllocation(ctx, engine.OpenAllocationParams{
		ItemID: "drill", Quantity: 2, HolderID: "ana",
	})
	require.NoError(t, err)

	// Three units on the shelf, two out on loan. Counting three means no
	// difference.
	_, err = rig.engine.AdjustStock(ctx, engine.AdjustStockParams{
		ItemID:          "drill",
		CountedQuantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, rig.item(t, "drill").TotalStock)

	_, err = rig.engine.AdjustStock(ctx, engine.AdjustStockParams{
		ItemID:          "drill",
		CountedQuantity: 2,
		Reason:          engine.AdjustReasonExitNotRegistered,
	})
	require.NoError(t, err)

	got := rig.item(t, "drill")
	assert.Equal(t, 4, got.TotalStock)
	assert.Equal(t, 2, got.OnLoanCount, "loaned units untouched by the count")
	assert.Equal(t, domain.HistoryTypeExit, got.History[0].Type)
}

func TestAdjustStock_RejectsNegativeCountAndKits(t *testing.T) {
	rig := newTestRig(t, kitFixture())
	ctx := context.Background()

	_, err := rig.engine.AdjustStock(ctx, engine.AdjustStockParams{
		ItemID:          "helmet",
		CountedQuantity: -1,
	})
	require.ErrorIs(t, err, errors.ErrValidation)

	_, err = rig.engine.AdjustStock(ctx, engine.AdjustStockParams{
		ItemID:          "climb-kit",
		CountedQuantity: 2,
	})
	require.ErrorIs(t, err, errors.ErrValidation)
}
