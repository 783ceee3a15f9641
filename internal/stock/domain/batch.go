package domain

import "time"

// Batch is a dated lot of a simple item. Quantity never goes negative;
// batches that reach zero are pruned from the owning item.
type Batch struct {
	ID                string     `json:"id"`
	Quantity          int        `json:"quantity"`
	AcquisitionDate   time.Time  `json:"acquisition_date"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	// ShelfLifeDays overrides the item default when > 0. Zero means the
	// item's own shelf life applies; if that is also zero the batch never
	// expires.
	ShelfLifeDays int  `json:"shelf_life_days"`
	IsReturn      bool `json:"is_return,omitempty"`
}

// HistoryType classifies a stock movement record.
type HistoryType string

const (
	HistoryTypeEntry      HistoryType = "entry"
	HistoryTypeExit       HistoryType = "exit"
	HistoryTypeLoan       HistoryType = "loan"
	HistoryTypeReturn     HistoryType = "return"
	HistoryTypeLoss       HistoryType = "loss"
	HistoryTypeDiscard    HistoryType = "discard"
	HistoryTypeAdjustment HistoryType = "adjustment"
)

// HistoryEntry is one movement record on an item's capped, newest-first log.
type HistoryEntry struct {
	Type      HistoryType `json:"type"`
	Quantity  int         `json:"quantity"`
	Timestamp time.Time   `json:"timestamp"`
	Details   string      `json:"details,omitempty"`
}
