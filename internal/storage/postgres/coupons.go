package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
)

func (r queries) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	data, err := storage.EncodeCoupon(c)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO coupons (id, restaurant_id, code, usage_limit, usage_count, enabled, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(c.ID()), c.RestaurantID(), c.Code(), c.TotalUsageLimit(), c.UsageCount(), c.Enabled(), data,
		c.Snapshot().CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("coupon %s: %w", c.Code(), storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert coupon %s: %w", c.Code(), err)
	}
	return nil
}

func (r queries) UpdateCoupon(ctx context.Context, c *coupon.Coupon) error {
	data, err := storage.EncodeCoupon(c)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `UPDATE coupons SET enabled = $1, data = $2 WHERE id = $3`,
		c.Enabled(), data, string(c.ID()))
	if err != nil {
		return fmt.Errorf("update coupon %s: %w", c.ID(), err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r queries) GetCoupon(ctx context.Context, id coupon.CouponID) (*coupon.Coupon, error) {
	return scanCoupon(r.q.QueryRow(ctx, `SELECT data, usage_count FROM coupons WHERE id = $1`, string(id)))
}

func (r queries) GetCouponByCode(ctx context.Context, restaurantID, code string) (*coupon.Coupon, error) {
	return scanCoupon(r.q.QueryRow(ctx,
		`SELECT data, usage_count FROM coupons WHERE restaurant_id = $1 AND code = $2`,
		restaurantID, strings.ToUpper(strings.TrimSpace(code))))
}

func scanCoupon(row pgx.Row) (*coupon.Coupon, error) {
	var (
		data  []byte
		count int
	)
	if err := row.Scan(&data, &count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return storage.DecodeCoupon(data, count)
}

func (r queries) IncrementCouponUsage(ctx context.Context, id coupon.CouponID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`, string(id))
	if err != nil {
		return fmt.Errorf("increment coupon usage %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists int
	err = r.q.QueryRow(ctx, `SELECT 1 FROM coupons WHERE id = $1`, string(id)).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	return coupon.ErrUsageLimitExceeded
}
