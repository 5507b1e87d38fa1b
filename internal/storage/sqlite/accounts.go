package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

// CreditRestaurantAccount reads then writes the balance; callers outside a
// transaction go through Store.CreditRestaurantAccount, which opens one.
func (r queries) CreditRestaurantAccount(ctx context.Context, restaurantID, orderID string, amount money.Money, at time.Time) error {
	acct, err := r.GetRestaurantAccount(ctx, restaurantID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_, err = r.q.ExecContext(ctx, `INSERT INTO restaurant_accounts (restaurant_id, currency, balance, updated_at)
			VALUES (?, ?, ?, ?)`, restaurantID, amount.Currency(), amount.Amount().String(), formatTime(at))
	case err != nil:
		return err
	case acct.Balance.Currency() != amount.Currency():
		return fmt.Errorf("credit %s: account is in %s, amount in %s", restaurantID, acct.Balance.Currency(), amount.Currency())
	default:
		_, err = r.q.ExecContext(ctx, `UPDATE restaurant_accounts SET balance = ?, updated_at = ? WHERE restaurant_id = ?`,
			acct.Balance.Add(amount).Amount().String(), formatTime(at), restaurantID)
	}
	if err != nil {
		return fmt.Errorf("credit %s: %w", restaurantID, err)
	}

	_, err = r.q.ExecContext(ctx, `INSERT INTO account_transactions (restaurant_id, order_id, amount, currency, created_at)
		VALUES (?, ?, ?, ?, ?)`, restaurantID, orderID, amount.Amount().String(), amount.Currency(), formatTime(at))
	if err != nil {
		return fmt.Errorf("record account transaction %s: %w", restaurantID, err)
	}
	return nil
}

func (r queries) GetRestaurantAccount(ctx context.Context, restaurantID string) (storage.RestaurantAccount, error) {
	var currency, balance, updatedAt string
	err := r.q.QueryRowContext(ctx, `SELECT currency, balance, updated_at FROM restaurant_accounts WHERE restaurant_id = ?`,
		restaurantID).Scan(&currency, &balance, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RestaurantAccount{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.RestaurantAccount{}, fmt.Errorf("get account %s: %w", restaurantID, err)
	}
	m, err := money.Parse(balance, currency)
	if err != nil {
		return storage.RestaurantAccount{}, err
	}
	at, err := parseTime(updatedAt)
	if err != nil {
		return storage.RestaurantAccount{}, err
	}
	return storage.RestaurantAccount{RestaurantID: restaurantID, Balance: m, UpdatedAt: at}, nil
}
