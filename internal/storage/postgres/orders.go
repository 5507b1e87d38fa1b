package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
)

func (r queries) GetOrder(ctx context.Context, id order.OrderID) (*order.Order, error) {
	var (
		data    []byte
		version int64
	)
	err := r.q.QueryRow(ctx, `SELECT data, version FROM orders WHERE id = $1`, string(id)).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return storage.DecodeOrder(data, version)
}

func (r queries) SaveOrder(ctx context.Context, o *order.Order) error {
	rec, err := storage.EncodeOrder(o)
	if err != nil {
		return err
	}
	msgs, err := storage.OrderEvents(o)
	if err != nil {
		return err
	}

	next := o.Version() + 1
	if o.Version() == 0 {
		_, err = r.q.Exec(ctx, `
			INSERT INTO orders (id, order_number, customer_id, restaurant_id, status, total_amount, currency, version, data, placed_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11)`,
			rec.ID, rec.OrderNumber, rec.CustomerID, rec.RestaurantID, rec.Status, rec.TotalAmount, rec.Currency,
			next, rec.Data, rec.PlacedAt, rec.UpdatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", rec.ID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("insert order %s: %w", rec.ID, err)
		}
	} else {
		tag, err := r.q.Exec(ctx, `
			UPDATE orders SET status = $1, total_amount = $2::numeric, currency = $3, version = $4, data = $5, updated_at = $6
			WHERE id = $7 AND version = $8`,
			rec.Status, rec.TotalAmount, rec.Currency, next, rec.Data, rec.UpdatedAt, rec.ID, o.Version())
		if err != nil {
			return fmt.Errorf("update order %s: %w", rec.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("order %s version %d: %w", rec.ID, o.Version(), storage.ErrConcurrencyConflict)
		}
	}

	if err := r.EnqueueOutbox(ctx, msgs...); err != nil {
		return err
	}
	o.SetVersion(next)
	return nil
}
