package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebitPolicy selects how a lost item is priced.
type DebitPolicy string

const (
	// PolicyReplacement bills the full current price per lost unit.
	PolicyReplacement DebitPolicy = "replacement"
	// PolicyDepreciated linearly reduces liability as the item's shelf
	// life elapses since the allocation opened.
	PolicyDepreciated DebitPolicy = "depreciated"
)

// Debit is a monetary liability raised against a holder when allocated stock
// is lost. Amount is rounded to cents and never negative. A debit is never
// mutated after creation except to flip Settled.
type Debit struct {
	ID        string          `json:"id"`
	HolderID  string          `json:"holder_id"`
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
	Settled   bool            `json:"settled"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}
