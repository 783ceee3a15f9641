package engine

import (
	"sort"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
)

// distribute consumes quantity from an item's batches in expiry order
// (first-expiring-first-out). It is the single deduction path shared by
// exits, losses, discards and kit component consumption.
//
// The call is all-or-nothing: when the batches cannot cover the quantity it
// returns ErrInsufficientStock and leaves the item untouched. Batches drained
// to zero are pruned.
func distribute(item *domain.Item, quantity int) error {
	available := 0
	for _, b := range item.Batches {
		available += b.Quantity
	}
	if available < quantity {
		return errors.InsufficientStock(item.Name, available)
	}

	sort.SliceStable(item.Batches, func(i, j int) bool {
		return expiryOf(item.Batches[i], item.ShelfLifeDays).
			Before(expiryOf(item.Batches[j], item.ShelfLifeDays))
	})

	remaining := quantity
	for i := range item.Batches {
		if remaining == 0 {
			break
		}
		if item.Batches[i].Quantity > remaining {
			item.Batches[i].Quantity -= remaining
			remaining = 0
		} else {
			remaining -= item.Batches[i].Quantity
			item.Batches[i].Quantity = 0
		}
	}

	pruned := item.Batches[:0]
	for _, b := range item.Batches {
		if b.Quantity > 0 {
			pruned = append(pruned, b)
		}
	}
	item.Batches = pruned

	return nil
}
