// Package app holds the order use cases: each one loads an aggregate, runs a
// domain operation and saves the result together with its outbox rows.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/payment"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
)

// Pricing is the restaurant-independent part of the price: a flat delivery
// fee and a tax rate applied to the discounted subtotal.
type Pricing struct {
	Currency    string
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
}

func PricingFromConfig(p config.Pricing) Pricing {
	return Pricing{Currency: p.Currency, DeliveryFee: p.DeliveryFee, TaxRate: p.TaxRate}
}

type Service struct {
	store   storage.Storage
	gateway payment.Gateway
	pricing Pricing
	retry   RetryConfig
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithRetry(cfg RetryConfig) Option { return func(s *Service) { s.retry = cfg } }

func NewService(store storage.Storage, gateway payment.Gateway, pricing Pricing, opts ...Option) *Service {
	s := &Service{
		store:   store,
		gateway: gateway,
		pricing: pricing,
		retry:   RetryConfig{MaxAttempts: 5, BaseDelay: 20 * time.Millisecond, MaxDelay: time.Second},
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/hoangvu1420/YummyZoom-sub001/internal/order/app"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetOrder(ctx context.Context, id order.OrderID) (*order.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, order.ErrNotFound
	}
	return o, err
}

// mutate loads the order, applies fn and saves it in one transaction,
// retrying the whole unit on a version conflict. The event buffer is cleared
// only after commit.
func (s *Service) mutate(ctx context.Context, step string, id order.OrderID, fn func(ctx context.Context, tx storage.Tx, o *order.Order) error) (*order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order."+step, trace.WithAttributes(attribute.String("order.id", string(id))))
	defer span.End()

	o, err := retryOnConflict(ctx, s.retry, func() (*order.Order, error) {
		var loaded *order.Order
		err := storage.WithTx(ctx, s.store, func(tx storage.Tx) error {
			o, err := tx.GetOrder(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				return order.ErrNotFound
			}
			if err != nil {
				return err
			}
			if err := fn(ctx, tx, o); err != nil {
				return err
			}
			if err := tx.SaveOrder(ctx, o); err != nil {
				return err
			}
			loaded = o
			return nil
		})
		return loaded, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, step)
		s.logger.WarnContext(ctx, "order update rejected",
			logging.KeyOrderID, id, logging.KeyStep, step, "error", err)
		return nil, err
	}
	o.ClearDomainEvents()
	s.logger.InfoContext(ctx, "order updated",
		logging.KeyOrderID, id, logging.KeyStep, step, logging.KeyStatus, o.Status())
	return o, nil
}

func (s *Service) RecordPaymentSuccess(ctx context.Context, id order.OrderID, gatewayReferenceID string) (*order.Order, error) {
	return s.mutate(ctx, "payment_succeeded", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.RecordPaymentSuccess(gatewayReferenceID, s.now())
	})
}

func (s *Service) RecordPaymentFailure(ctx context.Context, id order.OrderID, gatewayReferenceID string) (*order.Order, error) {
	return s.mutate(ctx, "payment_failed", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.RecordPaymentFailure(gatewayReferenceID, s.now())
	})
}

func (s *Service) AcceptOrder(ctx context.Context, id order.OrderID, estimatedDeliveryTime time.Time) (*order.Order, error) {
	return s.mutate(ctx, "accept", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.Accept(estimatedDeliveryTime, s.now())
	})
}

func (s *Service) RejectOrder(ctx context.Context, id order.OrderID, reason string) (*order.Order, error) {
	return s.mutate(ctx, "reject", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.Reject(reason, s.now())
	})
}

func (s *Service) CancelOrder(ctx context.Context, id order.OrderID, reason string) (*order.Order, error) {
	return s.mutate(ctx, "cancel", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.Cancel(reason, s.now())
	})
}

func (s *Service) MarkOrderPreparing(ctx context.Context, id order.OrderID) (*order.Order, error) {
	return s.mutate(ctx, "preparing", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.MarkAsPreparing(s.now())
	})
}

func (s *Service) MarkOrderReadyForDelivery(ctx context.Context, id order.OrderID) (*order.Order, error) {
	return s.mutate(ctx, "ready_for_delivery", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.MarkAsReadyForDelivery(s.now())
	})
}

func (s *Service) MarkOrderDelivered(ctx context.Context, id order.OrderID) (*order.Order, error) {
	return s.mutate(ctx, "delivered", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.MarkAsDelivered(s.now())
	})
}

// ApplyCoupon looks the code up in the order's restaurant and counts one use
// in the same transaction as the order save.
func (s *Service) ApplyCoupon(ctx context.Context, id order.OrderID, code string) (*order.Order, error) {
	return s.mutate(ctx, "apply_coupon", id, func(ctx context.Context, tx storage.Tx, o *order.Order) error {
		c, err := findCoupon(ctx, tx, o.RestaurantID(), code)
		if err != nil {
			return err
		}
		at := s.now()
		if err := c.CheckUsable(at); err != nil {
			return err
		}
		if err := o.ApplyCoupon(c, at); err != nil {
			return err
		}
		return tx.IncrementCouponUsage(ctx, c.ID())
	})
}

// RemoveCoupon does not give the use back to the coupon.
func (s *Service) RemoveCoupon(ctx context.Context, id order.OrderID) (*order.Order, error) {
	return s.mutate(ctx, "remove_coupon", id, func(_ context.Context, _ storage.Tx, o *order.Order) error {
		return o.RemoveCoupon(s.now())
	})
}

func findCoupon(ctx context.Context, st storage.Storage, restaurantID, code string) (*coupon.Coupon, error) {
	c, err := st.GetCouponByCode(ctx, restaurantID, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, coupon.ErrNotFound.WithMessage("no coupon %q for restaurant %s", code, restaurantID)
	}
	if err != nil {
		return nil, fmt.Errorf("load coupon: %w", err)
	}
	return c, nil
}
