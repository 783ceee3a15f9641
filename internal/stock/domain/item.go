package domain

// ItemKind distinguishes simple batch-backed items from composite kits.
type ItemKind int

const (
	Simple ItemKind = iota
	Kit
)

// String returns the kind's display name.
func (k ItemKind) String() string {
	switch k {
	case Simple:
		return "Simple"
	case Kit:
		return "Kit"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize readably.
func (k ItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ItemKind) UnmarshalText(text []byte) error {
	if string(text) == "Kit" {
		*k = Kit
	} else {
		*k = Simple
	}
	return nil
}

// KitComponent is a weak reference to another item plus the quantity one kit
// unit requires. A kit never owns the items it lists.
type KitComponent struct {
	ItemID           string `json:"item_id"`
	RequiredQuantity int    `json:"required_quantity"`
}

// Item is the aggregate root of the stock engine. Simple items own batches;
// kits own a component list and derive their stock from component
// availability. TotalStock and CurrentStock are caches, always recomputed
// after a mutation and never authoritative.
type Item struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Kind          ItemKind       `json:"kind"`
	Category      string         `json:"category"`
	Unit          string         `json:"unit"`
	Price         float64        `json:"price"`
	Returnable    bool           `json:"returnable"`
	ShelfLifeDays int            `json:"shelf_life_days"`
	Batches       []Batch        `json:"batches,omitempty"`
	Components    []KitComponent `json:"components,omitempty"`
	Allocations   []Allocation   `json:"allocations,omitempty"`
	OnLoanCount   int            `json:"on_loan_count"`
	TotalStock    int            `json:"total_stock"`
	CurrentStock  int            `json:"current_stock"`
	History       []HistoryEntry `json:"history,omitempty"`
}

// IsKit reports whether the item derives its stock from components.
func (i *Item) IsKit() bool {
	return i.Kind == Kit
}

// AllocationByID returns the index of the active allocation with the given
// id, or -1 when absent.
func (i *Item) AllocationByID(id string) int {
	for idx := range i.Allocations {
		if i.Allocations[idx].ID == id {
			return idx
		}
	}
	return -1
}

// BatchByID returns the index of the batch with the given id, or -1.
func (i *Item) BatchByID(id string) int {
	for idx := range i.Batches {
		if i.Batches[idx].ID == id {
			return idx
		}
	}
	return -1
}

// ReferencesComponent reports whether a kit lists componentID.
func (i *Item) ReferencesComponent(componentID string) bool {
	for _, c := range i.Components {
		if c.ItemID == componentID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the item. The engine works on clones so a
// failed operation never leaks partial mutations into the stored collection.
func (i *Item) Clone() *Item {
	out := *i
	if i.Batches != nil {
		out.Batches = make([]Batch, len(i.Batches))
		copy(out.Batches, i.Batches)
	}
	if i.Components != nil {
		out.Components = make([]KitComponent, len(i.Components))
		copy(out.Components, i.Components)
	}
	if i.Allocations != nil {
		out.Allocations = make([]Allocation, len(i.Allocations))
		copy(out.Allocations, i.Allocations)
	}
	if i.History != nil {
		out.History = make([]HistoryEntry, len(i.History))
		copy(out.History, i.History)
	}
	return &out
}

// CloneItems deep-copies a whole working set.
func CloneItems(items []*Item) []*Item {
	out := make([]*Item, len(items))
	for idx, it := range items {
		out[idx] = it.Clone()
	}
	return out
}
