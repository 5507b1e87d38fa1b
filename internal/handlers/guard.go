// Package handlers holds the outbox subscribers that react to order events.
// Every handler claims (handler, event id) in the inbox inside the same
// storage transaction as its effect, so a redelivered message is a no-op.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/idempotency"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

type guard struct {
	store  storage.Storage
	logger *slog.Logger
	now    func() time.Time
}

func newGuard(store storage.Storage, logger *slog.Logger) guard {
	if logger == nil {
		logger = slog.Default()
	}
	return guard{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// once runs effect at most once for (name, msg.ID). effect must write
// through tx, never through the guard's store.
func (g guard) once(ctx context.Context, name string, msg outbox.Message, effect func(ctx context.Context, tx storage.Tx) error) error {
	var ran bool
	err := storage.WithTx(ctx, g.store, func(tx storage.Tx) error {
		var err error
		ran, err = idempotency.Once(ctx, tx, name, msg.ID, g.now(), func(ctx context.Context) error {
			return effect(ctx, tx)
		})
		return err
	})
	if err != nil {
		return err
	}
	if !ran {
		g.logger.DebugContext(ctx, "duplicate event skipped",
			logging.KeyHandler, name, logging.KeyEventID, msg.ID, logging.KeyOrderID, msg.Key)
	}
	return nil
}
