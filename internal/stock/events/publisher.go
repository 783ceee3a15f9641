package events

import (
	"context"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
	"github.com/Pepe2244/almoxarifado-digital/pkg/messaging"
)

// StockEventPublisher publishes stock-related events. A nil publisher is
// valid and publishes nothing, so the engine can run without a broker.
type StockEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewStockEventPublisher creates a new stock event publisher
func NewStockEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*StockEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeStockEvents, "stock-service", log)
	if err != nil {
		return nil, err
	}

	return &StockEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockChanged publishes the ids whose cached stock changed in one
// committed operation.
func (p *StockEventPublisher) PublishStockChanged(ctx context.Context, operation string, itemIDs []string) {
	if p == nil || len(itemIDs) == 0 {
		return
	}

	data := messaging.StockChangedEvent{
		Operation: operation,
		ItemIDs:   itemIDs,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockChanged, data); err != nil {
		p.logger.Error().Err(err).Str("operation", operation).Msg("failed to publish stock changed event")
	}
}

// PublishDebitCreated publishes a debit created event
func (p *StockEventPublisher) PublishDebitCreated(ctx context.Context, debit *domain.Debit) {
	if p == nil {
		return
	}

	data := messaging.DebitCreatedEvent{
		DebitID:  debit.ID,
		HolderID: debit.HolderID,
		ItemID:   debit.ItemID,
		Quantity: debit.Quantity,
		Amount:   debit.Amount.StringFixed(2),
		Reason:   debit.Reason,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDebitCreated, data); err != nil {
		p.logger.Error().Err(err).Str("debit_id", debit.ID).Msg("failed to publish debit created event")
	}
}

// PublishDebitSettled publishes a debit settled event
func (p *StockEventPublisher) PublishDebitSettled(ctx context.Context, debitID string) {
	if p == nil {
		return
	}

	data := messaging.DebitSettledEvent{DebitID: debitID}

	if err := p.publisher.Publish(ctx, messaging.EventDebitSettled, data); err != nil {
		p.logger.Error().Err(err).Str("debit_id", debitID).Msg("failed to publish debit settled event")
	}
}
