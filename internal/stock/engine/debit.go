package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
)

// minDebitAmount is the smallest liability worth recording. Anything that
// rounds below one cent is forgiven.
var minDebitAmount = decimal.New(1, -2)

// replacementAmount prices quantity units at the item's current price,
// rounded to cents.
func replacementAmount(item *domain.Item, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(item.Price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2)
}

// kitReplacementAmount prices one lost kit allocation as the full
// replacement cost of every component it bundles. Components missing from
// the collection contribute nothing.
func kitReplacementAmount(kit *domain.Item, quantity int, byID map[string]*domain.Item) decimal.Decimal {
	total := decimal.Zero
	for _, comp := range kit.Components {
		component, ok := byID[comp.ItemID]
		if !ok {
			continue
		}
		total = total.Add(decimal.NewFromFloat(component.Price).
			Mul(decimal.NewFromInt(int64(comp.RequiredQuantity * quantity))))
	}
	return total.Round(2)
}

// computeDebitAmount prices a lost simple-item allocation under the engine's
// policy. Depreciation is linear over the item's shelf life measured from
// the day the allocation opened; items without a shelf life, non-returnable
// items, and the replacement policy all bill full price.
func (e *Engine) computeDebitAmount(item *domain.Item, alloc *domain.Allocation, quantity int) decimal.Decimal {
	full := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(quantity)))

	if e.policy == domain.PolicyReplacement || !item.Returnable || item.ShelfLifeDays <= 0 {
		return full.Round(2)
	}

	elapsed := e.clock.Now().Sub(alloc.OpenedAt)
	daysUsed := int64(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) > 0 {
		daysUsed++
	}
	if daysUsed < 0 {
		daysUsed = 0
	}

	factor := decimal.NewFromInt(daysUsed).Div(decimal.NewFromInt(int64(item.ShelfLifeDays)))
	if factor.GreaterThan(decimal.NewFromInt(1)) {
		factor = decimal.NewFromInt(1)
	}

	amount := full.Mul(decimal.NewFromInt(1).Sub(factor)).Round(2)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// stageDebit queues a liability on the working set; it reaches the
// repository only when the operation commits. Amounts below one cent are
// dropped silently.
func (e *Engine) stageDebit(ws *workingSet, holderID string, item *domain.Item, quantity int, amount decimal.Decimal, reason string) {
	if amount.LessThan(minDebitAmount) {
		e.log.Debug().Str("item_id", item.ID).Str("holder_id", holderID).Msg("debit below one cent, skipped")
		return
	}

	ws.staged = append(ws.staged, &domain.Debit{
		ID:        e.ids.NewID(),
		HolderID:  holderID,
		ItemID:    item.ID,
		ItemName:  item.Name,
		Quantity:  quantity,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: e.clock.Now(),
	})
}

// ListDebits returns every recorded debit, newest first.
func (e *Engine) ListDebits(ctx context.Context) ([]*domain.Debit, error) {
	return e.debits.List(ctx)
}

// SettleDebit marks a debit as paid. Settling twice is a conflict.
func (e *Engine) SettleDebit(ctx context.Context, id string) error {
	debit, err := e.debits.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if debit.Settled {
		return errors.Conflict("debit already settled")
	}

	if err := e.debits.Settle(ctx, id, e.clock.Now()); err != nil {
		return err
	}

	e.publisher.PublishDebitSettled(ctx, id)
	return nil
}
