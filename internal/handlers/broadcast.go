package handlers

import (
	"context"
	"fmt"
	"log/slog"

	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/realtime"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

// StatusBroadcaster tells restaurants and customers about status changes,
// one notifier call per transition.
type StatusBroadcaster struct {
	guard
	notifier realtime.Notifier
}

func NewStatusBroadcaster(store storage.Storage, notifier realtime.Notifier, logger *slog.Logger) *StatusBroadcaster {
	return &StatusBroadcaster{guard: newGuard(store, logger), notifier: notifier}
}

func (*StatusBroadcaster) Name() string { return "status-broadcaster" }

func (*StatusBroadcaster) EventTypes() []string {
	return []string{
		contracts.EventOrderPlaced,
		contracts.EventOrderPaymentSucceeded,
		contracts.EventOrderPaymentFailed,
		contracts.EventOrderAccepted,
		contracts.EventOrderRejected,
		contracts.EventOrderPreparing,
		contracts.EventOrderReadyForDelivery,
		contracts.EventOrderDelivered,
		contracts.EventOrderCancelled,
	}
}

func (b *StatusBroadcaster) Handle(ctx context.Context, msg outbox.Message) error {
	evt, err := order.DecodeEvent(msg.Type, msg.Content)
	if err != nil {
		return err
	}
	return b.once(ctx, b.Name(), msg, func(ctx context.Context, _ storage.Tx) error {
		return b.notify(ctx, evt)
	})
}

func (b *StatusBroadcaster) notify(ctx context.Context, evt order.Event) error {
	bc := newBroadcast(evt)
	switch e := evt.(type) {
	case order.OrderPlaced:
		bc.Status = string(order.StatusPlaced)
		return b.notifier.NotifyOrderPlaced(ctx, bc)
	case order.OrderAccepted:
		bc.Status = string(order.StatusAccepted)
		eta := e.EstimatedDeliveryTime
		bc.EstimatedDeliveryTime = &eta
		return b.notifier.NotifyOrderAccepted(ctx, bc)
	case order.OrderPaymentSucceeded:
		bc.Status = string(order.StatusPlaced)
		return b.notifier.NotifyOrderStatusChanged(ctx, bc, realtime.TargetCustomer)
	case order.OrderPaymentFailed:
		bc.Status = string(order.StatusCancelled)
		bc.Reason = "payment failed"
		return b.notifier.NotifyOrderStatusChanged(ctx, bc, realtime.TargetCustomer)
	case order.OrderRejected:
		bc.Status = string(order.StatusRejected)
		bc.Reason = e.Reason
		return b.notifier.NotifyOrderStatusChanged(ctx, bc, realtime.TargetCustomer)
	case order.OrderPreparing:
		bc.Status = string(order.StatusPreparing)
		return b.notifier.NotifyOrderStatusChanged(ctx, bc, realtime.TargetCustomer)
	case order.OrderReadyForDelivery:
		bc.Status = string(order.StatusReadyForDelivery)
		return b.notifier.NotifyOrderStatusChanged(ctx, bc, realtime.TargetBoth)
	case order.OrderDelivered:
		bc.Status = string(order.StatusDelivered)
		at := e.DeliveredAt
		bc.DeliveredAt = &at
		return b.notifier.NotifyOrderStatusChanged(ctx, bc, realtime.TargetBoth)
	case order.OrderCancelled:
		bc.Status = string(order.StatusCancelled)
		bc.Reason = e.Reason
		return b.notifier.NotifyOrderStatusChanged(ctx, bc, realtime.TargetBoth)
	default:
		return fmt.Errorf("status broadcaster: unexpected event %s", evt.EventType())
	}
}

func newBroadcast(evt order.Event) contracts.OrderStatusBroadcast {
	m := evt.Metadata()
	return contracts.OrderStatusBroadcast{
		OrderID:      string(m.OrderID),
		RestaurantID: m.RestaurantID,
		CustomerID:   m.CustomerID,
		EventID:      m.EventID,
		EventType:    evt.EventType(),
		OccurredAt:   m.OccurredAt,
	}
}
