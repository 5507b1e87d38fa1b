package handlers

import (
	"context"
	"fmt"
	"log/slog"

	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

// RevenueRecorder credits the restaurant with the order total on delivery.
type RevenueRecorder struct {
	guard
}

func NewRevenueRecorder(store storage.Storage, logger *slog.Logger) *RevenueRecorder {
	return &RevenueRecorder{guard: newGuard(store, logger)}
}

func (*RevenueRecorder) Name() string { return "revenue-recorder" }

func (*RevenueRecorder) EventTypes() []string {
	return []string{contracts.EventOrderDelivered}
}

func (r *RevenueRecorder) Handle(ctx context.Context, msg outbox.Message) error {
	evt, err := order.DecodeEvent(msg.Type, msg.Content)
	if err != nil {
		return err
	}
	delivered, ok := evt.(order.OrderDelivered)
	if !ok {
		return fmt.Errorf("revenue recorder: unexpected event %s", msg.Type)
	}
	return r.once(ctx, r.Name(), msg, func(ctx context.Context, tx storage.Tx) error {
		err := tx.CreditRestaurantAccount(ctx, delivered.RestaurantID, string(delivered.OrderID),
			delivered.TotalAmount, delivered.DeliveredAt)
		if err != nil {
			return err
		}
		r.logger.InfoContext(ctx, "restaurant credited",
			logging.KeyOrderID, delivered.OrderID,
			logging.KeyEventID, delivered.EventID,
			"restaurant_id", delivered.RestaurantID,
			"amount", delivered.TotalAmount.String())
		return nil
	})
}
