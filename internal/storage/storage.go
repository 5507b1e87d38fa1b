// Package storage defines the persistence boundary for orders, coupons, the
// outbox, the inbox and restaurant accounts. Backends live in subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrTxInProgress        = errors.New("transaction already in progress")
)

type Storage interface {
	// GetOrder returns ErrNotFound when no order has id.
	GetOrder(ctx context.Context, id order.OrderID) (*order.Order, error)
	// SaveOrder inserts (version 0) or updates the order with an optimistic
	// version check, and enqueues its pending domain events as outbox rows.
	// It bumps the order's version but leaves the event buffer alone.
	SaveOrder(ctx context.Context, o *order.Order) error

	CreateCoupon(ctx context.Context, c *coupon.Coupon) error
	UpdateCoupon(ctx context.Context, c *coupon.Coupon) error
	GetCoupon(ctx context.Context, id coupon.CouponID) (*coupon.Coupon, error)
	GetCouponByCode(ctx context.Context, restaurantID, code string) (*coupon.Coupon, error)
	// IncrementCouponUsage bumps the usage counter only while it is below the
	// limit, in one statement; otherwise coupon.ErrUsageLimitExceeded.
	IncrementCouponUsage(ctx context.Context, id coupon.CouponID) error

	EnqueueOutbox(ctx context.Context, msgs ...outbox.Message) error
	FetchPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error)
	ListOutbox(ctx context.Context, limit int) ([]outbox.Message, error)
	MarkOutboxProcessed(ctx context.Context, id string, at time.Time) error
	MarkOutboxFailed(ctx context.Context, id string, reason string) error

	// ClaimInbox inserts (handler, eventID) if absent and reports whether it did.
	ClaimInbox(ctx context.Context, handler, eventID string, at time.Time) (bool, error)
	ListInbox(ctx context.Context, handler string) ([]InboxMessage, error)

	// CreditRestaurantAccount adds amount to the restaurant's balance,
	// creating the account on first credit.
	CreditRestaurantAccount(ctx context.Context, restaurantID, orderID string, amount money.Money, at time.Time) error
	GetRestaurantAccount(ctx context.Context, restaurantID string) (RestaurantAccount, error)

	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a Storage whose operations all run in one database transaction.
type Tx interface {
	Storage
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type InboxMessage struct {
	Handler     string
	EventID     string
	ProcessedAt time.Time
}

type RestaurantAccount struct {
	RestaurantID string
	Balance      money.Money
	UpdatedAt    time.Time
}

// WithTx runs fn in a transaction, committing on success. When s is already
// a Tx, fn joins it and the outer caller owns commit.
func WithTx(ctx context.Context, s Storage, fn func(tx Tx) error) error {
	if tx, ok := s.(Tx); ok {
		return fn(tx)
	}
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
