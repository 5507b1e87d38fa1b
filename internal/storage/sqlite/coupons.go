package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
)

func (r queries) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	data, err := storage.EncodeCoupon(c)
	if err != nil {
		return err
	}
	var limit sql.NullInt64
	if l := c.TotalUsageLimit(); l != nil {
		limit = sql.NullInt64{Int64: int64(*l), Valid: true}
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO coupons (id, restaurant_id, code, usage_limit, usage_count, enabled, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(c.ID()), c.RestaurantID(), c.Code(), limit, c.UsageCount(), c.Enabled(), string(data),
		formatTime(c.Snapshot().CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("coupon %s: %w", c.Code(), storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert coupon %s: %w", c.Code(), err)
	}
	return nil
}

// UpdateCoupon rewrites everything except the usage counter.
func (r queries) UpdateCoupon(ctx context.Context, c *coupon.Coupon) error {
	data, err := storage.EncodeCoupon(c)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `UPDATE coupons SET enabled = ?, data = ? WHERE id = ?`,
		c.Enabled(), string(data), string(c.ID()))
	if err != nil {
		return fmt.Errorf("update coupon %s: %w", c.ID(), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r queries) GetCoupon(ctx context.Context, id coupon.CouponID) (*coupon.Coupon, error) {
	return r.scanCoupon(r.q.QueryRowContext(ctx, `SELECT data, usage_count FROM coupons WHERE id = ?`, string(id)))
}

func (r queries) GetCouponByCode(ctx context.Context, restaurantID, code string) (*coupon.Coupon, error) {
	return r.scanCoupon(r.q.QueryRowContext(ctx,
		`SELECT data, usage_count FROM coupons WHERE restaurant_id = ? AND code = ?`,
		restaurantID, strings.ToUpper(strings.TrimSpace(code))))
}

func (r queries) scanCoupon(row *sql.Row) (*coupon.Coupon, error) {
	var (
		data  string
		count int
	)
	if err := row.Scan(&data, &count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return storage.DecodeCoupon([]byte(data), count)
}

func (r queries) IncrementCouponUsage(ctx context.Context, id coupon.CouponID) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)`, string(id))
	if err != nil {
		return fmt.Errorf("increment coupon usage %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM coupons WHERE id = ?`, string(id)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	return coupon.ErrUsageLimitExceeded
}
