package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventStockChanged = "stock.changed"
	EventBatchAdded   = "stock.batch.added"
	EventBatchRemoved = "stock.batch.removed"
	EventDebitCreated = "stock.debit.created"
	EventDebitSettled = "stock.debit.settled"
)

// Exchange names
const (
	ExchangeStockEvents = "stock.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StockChangedEvent is published after a mutation commits; ItemIDs lists every
// item whose cached stock was re-derived.
type StockChangedEvent struct {
	Operation string   `json:"operation"`
	ItemIDs   []string `json:"item_ids"`
}

// DebitCreatedEvent is published when a loss raises a debit
type DebitCreatedEvent struct {
	DebitID  string `json:"debit_id"`
	HolderID string `json:"holder_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Amount   string `json:"amount"`
	Reason   string `json:"reason"`
}

// DebitSettledEvent is published when a debit is settled
type DebitSettledEvent struct {
	DebitID string `json:"debit_id"`
}
