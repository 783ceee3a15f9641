package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
)

// OpenAllocationParams describes a new custody event.
type OpenAllocationParams struct {
	ItemID   string
	Quantity int
	HolderID string
	Origin   string
}

// OpenAllocation hands quantity units of an item to a holder. Simple items
// keep their batches intact and reserve the units through the loan counter;
// kits consume their components immediately, since a kit unit only exists
// while its parts are bundled together.
func (e *Engine) OpenAllocation(ctx context.Context, p OpenAllocationParams) (*domain.Allocation, []string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	details := make(map[string]string)
	if p.Quantity <= 0 {
		details["quantity"] = "must be greater than zero"
	}
	if p.HolderID == "" {
		details["holder_id"] = "is required"
	}
	if len(details) > 0 {
		return nil, nil, errors.Validation(details)
	}

	ws, err := e.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	item, err := ws.item(p.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if item.CurrentStock < p.Quantity {
		return nil, nil, errors.InsufficientStock(item.Name, item.CurrentStock)
	}

	if item.IsKit() {
		for _, comp := range item.Components {
			component, err := ws.item(comp.ItemID)
			if err != nil {
				return nil, nil, err
			}
			needed := comp.RequiredQuantity * p.Quantity
			if err := distribute(component, needed); err != nil {
				return nil, nil, err
			}
			e.pushHistory(component, domain.HistoryTypeExit, needed,
				fmt.Sprintf("consumed by %d unit(s) of kit %q", p.Quantity, item.Name))
			ws.touch(component)
		}
	}

	alloc := domain.Allocation{
		ID:       e.ids.NewID(),
		ItemID:   item.ID,
		Quantity: p.Quantity,
		HolderID: p.HolderID,
		OpenedAt: e.clock.Now(),
		Origin:   p.Origin,
	}
	item.Allocations = append(item.Allocations, alloc)
	item.OnLoanCount += p.Quantity

	e.pushHistory(item, domain.HistoryTypeLoan, p.Quantity,
		fmt.Sprintf("%d unit(s) allocated to %s", p.Quantity, p.HolderID))
	ws.touch(item)

	changed, err := e.commit(ctx, ws, "open_allocation")
	if err != nil {
		return nil, nil, err
	}

	e.log.Info().Str("item_id", item.ID).Str("allocation_id", alloc.ID).Str("holder_id", p.HolderID).Int("quantity", p.Quantity).Msg("allocation opened")
	return &alloc, changed, nil
}

// ReturnAllocation closes an allocation with everything intact. Kit
// components are re-added as return batches so their remaining shelf life is
// preserved rather than reset.
func (e *Engine) ReturnAllocation(ctx context.Context, itemID, allocationID string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ws, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	item, err := ws.item(itemID)
	if err != nil {
		return nil, err
	}
	idx := item.AllocationByID(allocationID)
	if idx < 0 {
		return nil, errors.NotFound("allocation")
	}
	alloc := item.Allocations[idx]

	if item.IsKit() {
		for _, comp := range item.Components {
			component, err := ws.item(comp.ItemID)
			if err != nil {
				return nil, err
			}
			returned := comp.RequiredQuantity * alloc.Quantity
			e.readdComponent(component, returned)
			e.pushHistory(component, domain.HistoryTypeReturn, returned,
				fmt.Sprintf("returned with %d unit(s) of kit %q", alloc.Quantity, item.Name))
			ws.touch(component)
		}
	}

	e.closeAllocation(item, idx)
	e.pushHistory(item, domain.HistoryTypeReturn, alloc.Quantity,
		fmt.Sprintf("%d unit(s) returned by %s", alloc.Quantity, alloc.HolderID))
	ws.touch(item)

	changed, err := e.commit(ctx, ws, "return_allocation")
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("item_id", itemID).Str("allocation_id", allocationID).Msg("allocation returned")
	return changed, nil
}

// ReturnAllocationWithLoss closes a kit allocation where some component
// units came back missing or broken. losses maps component item id to the
// number of units not returned; omitted components are returned in full.
// Each lost component raises a replacement-cost debit against the holder.
func (e *Engine) ReturnAllocationWithLoss(ctx context.Context, itemID, allocationID string, losses map[string]int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ws, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	item, err := ws.item(itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsKit() {
		return nil, errors.Validation(map[string]string{
			"item": "partial-loss returns only apply to kits",
		})
	}
	idx := item.AllocationByID(allocationID)
	if idx < 0 {
		return nil, errors.NotFound("allocation")
	}
	alloc := item.Allocations[idx]

	// Validate every component before mutating or staging anything, so a
	// bad entry anywhere in the map rejects the whole call.
	for componentID := range losses {
		if !item.ReferencesComponent(componentID) {
			return nil, errors.Validation(map[string]string{
				"losses": fmt.Sprintf("item %s is not a component of this kit", componentID),
			})
		}
	}
	for _, comp := range item.Components {
		component, err := ws.item(comp.ItemID)
		if err != nil {
			return nil, err
		}
		expected := comp.RequiredQuantity * alloc.Quantity
		lost := losses[comp.ItemID]
		if lost < 0 {
			return nil, errors.Validation(map[string]string{"losses": "lost quantity must not be negative"})
		}
		if lost > expected {
			return nil, errors.Validation(map[string]string{
				"losses": fmt.Sprintf("cannot lose %d of %d allocated unit(s) of %q", lost, expected, component.Name),
			})
		}
	}

	for _, comp := range item.Components {
		component, err := ws.item(comp.ItemID)
		if err != nil {
			return nil, err
		}
		expected := comp.RequiredQuantity * alloc.Quantity
		lost := losses[comp.ItemID]

		if returned := expected - lost; returned > 0 {
			e.readdComponent(component, returned)
			e.pushHistory(component, domain.HistoryTypeReturn, returned,
				fmt.Sprintf("returned with %d unit(s) of kit %q", alloc.Quantity, item.Name))
		}
		if lost > 0 {
			e.pushHistory(component, domain.HistoryTypeLoss, lost,
				fmt.Sprintf("lost from kit %q by %s", item.Name, alloc.HolderID))
			e.stageDebit(ws, alloc.HolderID, component, lost, replacementAmount(component, lost),
				fmt.Sprintf("lost from kit %q", item.Name))
		}
		ws.touch(component)
	}

	e.closeAllocation(item, idx)
	e.pushHistory(item, domain.HistoryTypeReturn, alloc.Quantity,
		fmt.Sprintf("%d unit(s) returned by %s with component losses", alloc.Quantity, alloc.HolderID))
	ws.touch(item)

	changed, err := e.commit(ctx, ws, "return_allocation_with_loss")
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("item_id", itemID).Str("allocation_id", allocationID).Int("lost_components", len(losses)).Msg("allocation returned with losses")
	return changed, nil
}

// RegisterLoss closes an allocation as fully lost and raises the resulting
// debit. Kit components were already consumed when the allocation opened, so
// a kit loss only prices the liability; a simple item additionally burns the
// lost units out of its batch ledger.
func (e *Engine) RegisterLoss(ctx context.Context, itemID, allocationID, reason string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ws, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	item, err := ws.item(itemID)
	if err != nil {
		return nil, err
	}
	idx := item.AllocationByID(allocationID)
	if idx < 0 {
		return nil, errors.NotFound("allocation")
	}
	alloc := item.Allocations[idx]

	var amount decimal.Decimal
	if item.IsKit() {
		amount = kitReplacementAmount(item, alloc.Quantity, ws.byID)
	} else {
		amount = e.computeDebitAmount(item, &alloc, alloc.Quantity)
		if err := distribute(item, alloc.Quantity); err != nil {
			return nil, err
		}
	}

	e.stageDebit(ws, alloc.HolderID, item, alloc.Quantity, amount,
		fmt.Sprintf("allocation loss: %s", reason))

	e.closeAllocation(item, idx)
	e.pushHistory(item, domain.HistoryTypeLoss, alloc.Quantity,
		fmt.Sprintf("%d unit(s) lost by %s: %s", alloc.Quantity, alloc.HolderID, reason))
	ws.touch(item)

	changed, err := e.commit(ctx, ws, "register_loss")
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("item_id", itemID).Str("allocation_id", allocationID).Str("holder_id", alloc.HolderID).Msg("allocation loss registered")
	return changed, nil
}

// closeAllocation removes the allocation at idx and releases its reserved
// units, flooring the loan counter at zero.
func (e *Engine) closeAllocation(item *domain.Item, idx int) {
	quantity := item.Allocations[idx].Quantity
	item.Allocations = append(item.Allocations[:idx], item.Allocations[idx+1:]...)
	item.OnLoanCount -= quantity
	if item.OnLoanCount < 0 {
		item.OnLoanCount = 0
	}
}

// readdComponent puts returned component units back into the ledger as a
// return batch dated by the best available estimate of their original entry,
// so the remaining shelf life is honored instead of reset.
func (e *Engine) readdComponent(component *domain.Item, quantity int) {
	component.Batches = append(component.Batches, domain.Batch{
		ID:              e.ids.NewID(),
		Quantity:        quantity,
		AcquisitionDate: e.returnBatchDate(component),
		ShelfLifeDays:   component.ShelfLifeDays,
		IsReturn:        true,
	})
}

// returnBatchDate estimates when returned units originally entered stock:
// the oldest entry in the movement history, else the oldest batch still on
// the shelf, else now.
func (e *Engine) returnBatchDate(component *domain.Item) time.Time {
	var oldest time.Time
	for _, entry := range component.History {
		if entry.Type != domain.HistoryTypeEntry {
			continue
		}
		if oldest.IsZero() || entry.Timestamp.Before(oldest) {
			oldest = entry.Timestamp
		}
	}
	if !oldest.IsZero() {
		return oldest
	}
	for _, batch := range component.Batches {
		if oldest.IsZero() || batch.AcquisitionDate.Before(oldest) {
			oldest = batch.AcquisitionDate
		}
	}
	if !oldest.IsZero() {
		return oldest
	}
	return e.clock.Now()
}
