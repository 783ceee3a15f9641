package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
)

// AddBatchParams describes a new dated lot for a simple item.
type AddBatchParams struct {
	ItemID            string
	Quantity          int
	AcquisitionDate   time.Time
	ManufacturingDate *time.Time
	// ShelfLifeDaysOverride overrides the item default when > 0.
	ShelfLifeDaysOverride int
}

func (e *Engine) validateBatchDates(p AddBatchParams) error {
	details := make(map[string]string)

	if p.Quantity <= 0 {
		details["quantity"] = "must be greater than zero"
	}
	if p.AcquisitionDate.IsZero() {
		details["acquisition_date"] = "is required"
	}

	endOfToday := endOfDay(e.clock.Now())
	if !p.AcquisitionDate.IsZero() && p.AcquisitionDate.After(endOfToday) {
		details["acquisition_date"] = "must not be in the future"
	}
	if p.ManufacturingDate != nil {
		if p.ManufacturingDate.After(endOfToday) {
			details["manufacturing_date"] = "must not be in the future"
		} else if !p.AcquisitionDate.IsZero() && p.ManufacturingDate.After(p.AcquisitionDate) {
			details["manufacturing_date"] = "must not be after the acquisition date"
		}
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// AddBatch appends a new dated lot to a simple item and re-derives every
// dependent stock figure. Returns the created batch and the changed item ids.
func (e *Engine) AddBatch(ctx context.Context, p AddBatchParams) (*domain.Batch, []string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateBatchDates(p); err != nil {
		return nil, nil, err
	}

	ws, err := e.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	item, err := ws.item(p.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if item.IsKit() {
		return nil, nil, errors.Validation(map[string]string{
			"item": "kits have no batch ledger; kit stock derives from components",
		})
	}

	shelfLife := p.ShelfLifeDaysOverride
	if shelfLife <= 0 {
		shelfLife = item.ShelfLifeDays
	}

	batch := domain.Batch{
		ID:                e.ids.NewID(),
		Quantity:          p.Quantity,
		AcquisitionDate:   p.AcquisitionDate,
		ManufacturingDate: p.ManufacturingDate,
		ShelfLifeDays:     shelfLife,
	}
	item.Batches = append(item.Batches, batch)

	e.pushHistory(item, domain.HistoryTypeEntry, p.Quantity,
		fmt.Sprintf("added %d unit(s) via new batch", p.Quantity))
	ws.touch(item)

	changed, err := e.commit(ctx, ws, "add_batch")
	if err != nil {
		return nil, nil, err
	}

	e.log.Info().Str("item_id", item.ID).Str("batch_id", batch.ID).Int("quantity", p.Quantity).Msg("batch added")
	return &batch, changed, nil
}

// RemoveBatch deletes a batch regardless of remaining quantity. Loaned
// quantity is tracked by allocations, not batches, so no in-use check
// applies here.
func (e *Engine) RemoveBatch(ctx context.Context, itemID, batchID string) ([]string, error) {
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

	idx := item.BatchByID(batchID)
	if idx < 0 {
		return nil, errors.NotFound("batch")
	}

	removedQuantity := item.Batches[idx].Quantity
	item.Batches = append(item.Batches[:idx], item.Batches[idx+1:]...)

	e.pushHistory(item, domain.HistoryTypeAdjustment, -removedQuantity,
		fmt.Sprintf("batch with %d unit(s) removed", removedQuantity))
	ws.touch(item)

	changed, err := e.commit(ctx, ws, "remove_batch")
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("item_id", itemID).Str("batch_id", batchID).Int("quantity", removedQuantity).Msg("batch removed")
	return changed, nil
}

// Distribute consumes quantity from a simple item's available stock in
// expiry order. This is the plain exit path for consumables and
// adjustments; no allocation is created.
func (e *Engine) Distribute(ctx context.Context, itemID string, quantity int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}

	ws, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	item, err := ws.item(itemID)
	if err != nil {
		return nil, err
	}
	if item.IsKit() {
		return nil, errors.Validation(map[string]string{
			"item": "kit stock is virtual; open an allocation instead",
		})
	}
	if item.CurrentStock < quantity {
		return nil, errors.InsufficientStock(item.Name, item.CurrentStock)
	}

	if err := distribute(item, quantity); err != nil {
		return nil, err
	}

	e.pushHistory(item, domain.HistoryTypeExit, quantity,
		fmt.Sprintf("exit of %d unit(s)", quantity))
	ws.touch(item)

	return e.commit(ctx, ws, "distribute")
}

// RegisterDirectLoss discards quantity from available stock without an
// allocation. When holderID is set, a replacement-cost debit is raised
// against that holder.
func (e *Engine) RegisterDirectLoss(ctx context.Context, itemID string, quantity int, reason, holderID string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}

	ws, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	item, err := ws.item(itemID)
	if err != nil {
		return nil, err
	}
	if item.IsKit() {
		return nil, errors.Validation(map[string]string{
			"item": "kit stock is virtual; register losses per component",
		})
	}
	if item.TotalStock < quantity {
		return nil, errors.InsufficientStock(item.Name, item.TotalStock)
	}

	if err := distribute(item, quantity); err != nil {
		return nil, err
	}

	e.pushHistory(item, domain.HistoryTypeDiscard, quantity,
		fmt.Sprintf("discard of %d unit(s): %s", quantity, reason))
	ws.touch(item)

	if holderID != "" {
		amount := replacementAmount(item, quantity)
		e.stageDebit(ws, holderID, item, quantity, amount, fmt.Sprintf("direct loss/discard: %s", reason))
	}

	return e.commit(ctx, ws, "direct_loss")
}

// ReplaceExpired discards quantity in expiry order and re-adds the same
// quantity as a fresh batch dated today with the item's default shelf life.
func (e *Engine) ReplaceExpired(ctx context.Context, itemID string, quantity int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}

	ws, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	item, err := ws.item(itemID)
	if err != nil {
		return nil, err
	}
	if item.IsKit() {
		return nil, errors.Validation(map[string]string{"item": "kits have no batch ledger"})
	}
	if item.TotalStock < quantity {
		return nil, errors.InsufficientStock(item.Name, item.TotalStock)
	}

	if err := distribute(item, quantity); err != nil {
		return nil, err
	}

	item.Batches = append(item.Batches, domain.Batch{
		ID:              e.ids.NewID(),
		Quantity:        quantity,
		AcquisitionDate: e.clock.Now(),
		ShelfLifeDays:   item.ShelfLifeDays,
	})

	e.pushHistory(item, domain.HistoryTypeDiscard, quantity,
		fmt.Sprintf("discard of %d expired unit(s)", quantity))
	e.pushHistory(item, domain.HistoryTypeEntry, quantity,
		fmt.Sprintf("entry of %d replacement unit(s)", quantity))
	ws.touch(item)

	return e.commit(ctx, ws, "replace_expired")
}

// Reason codes for stock count adjustments. Anything else is recorded as a
// plain adjustment.
const (
	AdjustReasonEntryNotRegistered  = "entry_no_reg"
	AdjustReasonReturnNotRegistered = "return_no_reg"
	AdjustReasonExitNotRegistered   = "exit_no_reg"
	AdjustReasonLossOrDamage        = "loss_damage"
)

// AdjustStockParams describes a physical count reconciliation.
type AdjustStockParams struct {
	ItemID          string
	CountedQuantity int
	Reason          string
	// BatchID optionally names an existing batch to absorb a positive
	// difference; otherwise a new adjustment batch is created.
	BatchID string
}

// AdjustStock reconciles the ledger with a physical count. The difference
// against on-shelf stock (total minus loaned) is applied to the batches: a
// surplus extends or creates a batch, a shortage is consumed in expiry
// order. A matching count still records a history entry.
func (e *Engine) AdjustStock(ctx context.Context, p AdjustStockParams) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.CountedQuantity < 0 {
		return nil, errors.Validation(map[string]string{
			"counted_quantity": "must not be negative",
		})
	}

	ws, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	item, err := ws.item(p.ItemID)
	if err != nil {
		return nil, err
	}
	if item.IsKit() {
		return nil, errors.Validation(map[string]string{
			"item": "kit stock is virtual; count its components instead",
		})
	}

	onShelf := item.TotalStock - item.OnLoanCount
	difference := p.CountedQuantity - onShelf

	historyType, details := adjustmentHistory(p.Reason, onShelf, p.CountedQuantity, difference)
	e.pushHistory(item, historyType, difference, details)

	switch {
	case difference > 0:
		extended := false
		if p.BatchID != "" {
			if idx := item.BatchByID(p.BatchID); idx >= 0 {
				item.Batches[idx].Quantity += difference
				extended = true
			}
		}
		if !extended {
			item.Batches = append(item.Batches, domain.Batch{
				ID:              e.ids.NewID(),
				Quantity:        difference,
				AcquisitionDate: e.clock.Now(),
			})
		}
	case difference < 0:
		if err := distribute(item, -difference); err != nil {
			return nil, err
		}
	}
	ws.touch(item)

	changed, err := e.commit(ctx, ws, "adjust_stock")
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("item_id", item.ID).Int("counted", p.CountedQuantity).Int("difference", difference).Msg("stock count adjusted")
	return changed, nil
}

// adjustmentHistory maps a count reconciliation reason to the movement type
// it really represents.
func adjustmentHistory(reason string, onShelf, counted, difference int) (domain.HistoryType, string) {
	switch reason {
	case AdjustReasonEntryNotRegistered:
		return domain.HistoryTypeEntry,
			fmt.Sprintf("%d unit(s) found in count, entry was never registered", difference)
	case AdjustReasonReturnNotRegistered:
		return domain.HistoryTypeReturn,
			fmt.Sprintf("%d unit(s) returned without a registered return", difference)
	case AdjustReasonExitNotRegistered:
		return domain.HistoryTypeExit,
			fmt.Sprintf("%d unit(s) consumed without a registered exit", -difference)
	case AdjustReasonLossOrDamage:
		return domain.HistoryTypeLoss,
			fmt.Sprintf("%d unit(s) lost or damaged, identified in count", -difference)
	default:
		return domain.HistoryTypeAdjustment,
			fmt.Sprintf("count adjusted from %d to %d", onShelf, counted)
	}
}

func endOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 0, t.Location())
}
