package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
)

var migrations = []storage.Migration{
	{Version: "1.0.0", Up: migrationOrdersOutbox},
	{Version: "1.1.0", Up: migrationCoupons},
	{Version: "1.2.0", Up: migrationAccounts},
}

const migrationOrdersOutbox = `
CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    order_number TEXT NOT NULL UNIQUE,
    customer_id TEXT NOT NULL,
    restaurant_id TEXT NOT NULL,
    status TEXT NOT NULL,
    total_amount NUMERIC NOT NULL,
    currency TEXT NOT NULL,
    version BIGINT NOT NULL,
    data JSONB NOT NULL,
    placed_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_restaurant_status ON orders(restaurant_id, status);

CREATE TABLE IF NOT EXISTS outbox_messages (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    key TEXT NOT NULL DEFAULT '',
    content JSONB NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    processed_at TIMESTAMPTZ,
    error TEXT,
    attempts INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_messages(occurred_at) WHERE processed_at IS NULL;

CREATE TABLE IF NOT EXISTS inbox_messages (
    handler TEXT NOT NULL,
    event_id TEXT NOT NULL,
    processed_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (handler, event_id)
);
`

const migrationCoupons = `
CREATE TABLE IF NOT EXISTS coupons (
    id TEXT PRIMARY KEY,
    restaurant_id TEXT NOT NULL,
    code TEXT NOT NULL,
    usage_limit INT,
    usage_count INT NOT NULL DEFAULT 0,
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    data JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (restaurant_id, code)
);
`

const migrationAccounts = `
CREATE TABLE IF NOT EXISTS restaurant_accounts (
    restaurant_id TEXT PRIMARY KEY,
    currency TEXT NOT NULL,
    balance NUMERIC NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS account_transactions (
    id BIGSERIAL PRIMARY KEY,
    restaurant_id TEXT NOT NULL,
    order_id TEXT NOT NULL,
    amount NUMERIC NOT NULL,
    currency TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_account_transactions_restaurant ON account_transactions(restaurant_id);
`

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}
	var applied []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied = append(applied, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	current, err := storage.LatestVersion(applied)
	if err != nil {
		return err
	}
	pending, err := storage.PendingMigrations(current, migrations)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := applyOne(ctx, pool, m); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, pool *pgxpool.Pool, m storage.Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.Up); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	return tx.Commit(ctx)
}
