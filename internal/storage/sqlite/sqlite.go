package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

// timeLayout sorts lexicographically in the same order as time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite implementation of storage.Storage.
type Store struct {
	queries
	db *sql.DB
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Tx      = (*txStore)(nil)
)

// Open opens (or creates) the database at dsn and applies migrations. Use
// ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{queries: queries{q: db}, db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{queries: queries{q: tx}, tx: tx}, nil
}

// SaveOrder and CreditRestaurantAccount span several statements, so outside
// a transaction they open their own.

func (s *Store) SaveOrder(ctx context.Context, o *order.Order) error {
	return storage.WithTx(ctx, s, func(tx storage.Tx) error { return tx.SaveOrder(ctx, o) })
}

func (s *Store) CreditRestaurantAccount(ctx context.Context, restaurantID, orderID string, amount money.Money, at time.Time) error {
	return storage.WithTx(ctx, s, func(tx storage.Tx) error {
		return tx.CreditRestaurantAccount(ctx, restaurantID, orderID, amount, at)
	})
}

type txStore struct {
	queries
	tx *sql.Tx
}

func (t *txStore) Commit(context.Context) error { return t.tx.Commit() }

func (t *txStore) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *txStore) BeginTx(context.Context) (storage.Tx, error) { return nil, storage.ErrTxInProgress }

func (t *txStore) Close() error { return nil }

// queries holds every statement; it runs against either the pool or a tx.
type queries struct {
	q querier
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
