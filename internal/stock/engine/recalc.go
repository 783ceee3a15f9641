package engine

import (
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
)

// recalculate re-derives the cached TotalStock/CurrentStock of one item.
// Idempotent; writes nothing but the two cached fields.
//
// Simple items sum their batches. Kits derive a potential production count
// from component availability: the minimum over components of
// floor(component.CurrentStock / requiredQuantity). An empty component set or
// an unresolvable component id means nothing can be produced.
func recalculate(item *domain.Item, byID map[string]*domain.Item) {
	switch item.Kind {
	case domain.Kit:
		potential, ok := kitPotential(item, byID)
		if !ok {
			item.TotalStock = item.OnLoanCount
			item.CurrentStock = 0
			return
		}
		item.TotalStock = potential + item.OnLoanCount
		item.CurrentStock = potential
	default:
		total := 0
		for _, b := range item.Batches {
			total += b.Quantity
		}
		item.TotalStock = total
		item.CurrentStock = total - item.OnLoanCount
		if item.CurrentStock < 0 {
			item.CurrentStock = 0
		}
	}
}

// kitPotential returns how many kit units the components can currently
// produce. ok is false when the component set is empty or references an
// unknown item. Components with a non-positive required quantity impose no
// bound.
func kitPotential(kit *domain.Item, byID map[string]*domain.Item) (int, bool) {
	if len(kit.Components) == 0 {
		return 0, false
	}

	potential := -1
	for _, c := range kit.Components {
		component, found := byID[c.ItemID]
		if !found {
			return 0, false
		}
		if c.RequiredQuantity <= 0 {
			continue
		}
		producible := component.CurrentStock / c.RequiredQuantity
		if potential < 0 || producible < potential {
			potential = producible
		}
	}
	if potential < 0 {
		potential = 0
	}
	return potential, true
}

// kitIndex is a reverse index componentID -> kits referencing it, built once
// per working set so propagation after a component change touches only the
// affected kits.
type kitIndex map[string][]*domain.Item

func buildKitIndex(items []*domain.Item) kitIndex {
	idx := make(kitIndex)
	for _, item := range items {
		if !item.IsKit() {
			continue
		}
		for _, c := range item.Components {
			idx[c.ItemID] = append(idx[c.ItemID], item)
		}
	}
	return idx
}

// propagate re-derives every kit referencing the changed component and
// reports their ids.
func (idx kitIndex) propagate(componentID string, byID map[string]*domain.Item) []string {
	kits := idx[componentID]
	ids := make([]string, 0, len(kits))
	for _, kit := range kits {
		recalculate(kit, byID)
		ids = append(ids, kit.ID)
	}
	return ids
}
