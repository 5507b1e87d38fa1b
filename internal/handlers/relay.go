package handlers

import (
	"context"
	"log/slog"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/kafka"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

// EventRelay republishes every order event to Kafka as a contracts.Envelope
// keyed by order id.
type EventRelay struct {
	guard
	writer kafka.Writer
}

func NewEventRelay(store storage.Storage, writer kafka.Writer, logger *slog.Logger) *EventRelay {
	return &EventRelay{guard: newGuard(store, logger), writer: writer}
}

func (*EventRelay) Name() string { return "event-relay" }

func (*EventRelay) EventTypes() []string {
	return []string{
		contracts.EventOrderCreated,
		contracts.EventOrderPaymentSucceeded,
		contracts.EventOrderPaymentFailed,
		contracts.EventOrderPlaced,
		contracts.EventOrderAccepted,
		contracts.EventOrderRejected,
		contracts.EventOrderCancelled,
		contracts.EventOrderPreparing,
		contracts.EventOrderReadyForDelivery,
		contracts.EventOrderDelivered,
		contracts.EventOrderPaid,
	}
}

func (r *EventRelay) Handle(ctx context.Context, msg outbox.Message) error {
	env := contracts.Envelope{
		EventID:    msg.ID,
		OrderID:    msg.Key,
		Type:       msg.Type,
		OccurredAt: msg.OccurredAt,
		Payload:    msg.Content,
	}
	return r.once(ctx, r.Name(), msg, func(ctx context.Context, _ storage.Tx) error {
		return kafka.PublishJSON(ctx, r.writer, msg.Key, msg.Type, env)
	})
}
