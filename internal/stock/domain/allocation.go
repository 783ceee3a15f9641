package domain

import "time"

// Allocation is one custody event: quantity of an item temporarily held by a
// person. Allocations are Active while attached to an item; resolving one
// (return or loss) removes it, leaving at most a debit and history entries
// behind.
type Allocation struct {
	ID       string    `json:"id"`
	ItemID   string    `json:"item_id"`
	Quantity int       `json:"quantity"`
	HolderID string    `json:"holder_id"`
	OpenedAt time.Time `json:"opened_at"`
	// Origin optionally links the allocation to an external reference such
	// as a work order.
	Origin string `json:"origin,omitempty"`
}
