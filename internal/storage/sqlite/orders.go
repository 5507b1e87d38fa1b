package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
)

func (r queries) GetOrder(ctx context.Context, id order.OrderID) (*order.Order, error) {
	var (
		data    string
		version int64
	)
	err := r.q.QueryRowContext(ctx, `SELECT data, version FROM orders WHERE id = ?`, string(id)).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return storage.DecodeOrder([]byte(data), version)
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
		_, err = r.q.ExecContext(ctx, `
			INSERT INTO orders (id, order_number, customer_id, restaurant_id, status, total_amount, currency, version, data, placed_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.OrderNumber, rec.CustomerID, rec.RestaurantID, rec.Status, rec.TotalAmount, rec.Currency,
			next, string(rec.Data), formatTime(rec.PlacedAt), formatTime(rec.UpdatedAt))
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", rec.ID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("insert order %s: %w", rec.ID, err)
		}
	} else {
		res, err := r.q.ExecContext(ctx, `
			UPDATE orders SET status = ?, total_amount = ?, currency = ?, version = ?, data = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			rec.Status, rec.TotalAmount, rec.Currency, next, string(rec.Data), formatTime(rec.UpdatedAt),
			rec.ID, o.Version())
		if err != nil {
			return fmt.Errorf("update order %s: %w", rec.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("order %s version %d: %w", rec.ID, o.Version(), storage.ErrConcurrencyConflict)
		}
	}

	if err := r.EnqueueOutbox(ctx, msgs...); err != nil {
		return err
	}
	o.SetVersion(next)
	return nil
}
