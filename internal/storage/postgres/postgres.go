package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store is the Postgres implementation of storage.Storage.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Tx      = (*txStore)(nil)
)

func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{queries: queries{q: pool}, pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txStore{queries: queries{q: tx}, tx: tx}, nil
}

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
	tx pgx.Tx
}

func (t *txStore) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t *txStore) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (t *txStore) BeginTx(context.Context) (storage.Tx, error) { return nil, storage.ErrTxInProgress }

func (t *txStore) Close() error { return nil }

type queries struct {
	q querier
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
