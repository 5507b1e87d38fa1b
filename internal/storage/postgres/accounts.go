package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

func (r queries) CreditRestaurantAccount(ctx context.Context, restaurantID, orderID string, amount money.Money, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO restaurant_accounts (restaurant_id, currency, balance, updated_at)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (restaurant_id) DO UPDATE
		SET balance = restaurant_accounts.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		WHERE restaurant_accounts.currency = EXCLUDED.currency`,
		restaurantID, amount.Currency(), amount.Amount().String(), at)
	if err != nil {
		return fmt.Errorf("credit %s: %w", restaurantID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credit %s: account currency differs from %s", restaurantID, amount.Currency())
	}

	_, err = r.q.Exec(ctx, `INSERT INTO account_transactions (restaurant_id, order_id, amount, currency, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5)`, restaurantID, orderID, amount.Amount().String(), amount.Currency(), at)
	if err != nil {
		return fmt.Errorf("record account transaction %s: %w", restaurantID, err)
	}
	return nil
}

func (r queries) GetRestaurantAccount(ctx context.Context, restaurantID string) (storage.RestaurantAccount, error) {
	var (
		currency, balance string
		updatedAt         time.Time
	)
	err := r.q.QueryRow(ctx, `SELECT currency, balance::text, updated_at FROM restaurant_accounts WHERE restaurant_id = $1`,
		restaurantID).Scan(&currency, &balance, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.RestaurantAccount{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.RestaurantAccount{}, fmt.Errorf("get account %s: %w", restaurantID, err)
	}
	m, err := money.Parse(balance, currency)
	if err != nil {
		return storage.RestaurantAccount{}, err
	}
	return storage.RestaurantAccount{RestaurantID: restaurantID, Balance: m, UpdatedAt: updatedAt.UTC()}, nil
}
