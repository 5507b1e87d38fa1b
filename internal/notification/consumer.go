// Package notification consumes status notifications from the Kafka status
// topic and hands each one, once per audience, to a Sink.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/idempotency"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
)

var ErrMalformed = errors.New("malformed notification")

type Sink interface {
	Deliver(ctx context.Context, n contracts.StatusNotification) error
}

// LogSink writes every notification as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(ctx context.Context, n contracts.StatusNotification) error {
	s.Logger.InfoContext(ctx, "notification emitted",
		"audience", n.Audience,
		"recipient_id", n.RecipientID,
		logging.KeyOrderID, n.Broadcast.OrderID,
		logging.KeyEventID, n.Broadcast.EventID,
		logging.KeyStatus, n.Broadcast.Status,
	)
	return nil
}

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Consumer struct {
	store  storage.Storage
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
	// Backoff is how long Run waits after a failed fetch.
	Backoff time.Duration
}

func NewConsumer(store storage.Storage, sink Sink, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		store:   store,
		sink:    sink,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		Backoff: 2 * time.Second,
	}
}

func inboxHandler(audience string) string { return "notify:" + audience }

// Handle delivers the notification in m unless this audience has already
// seen its event. It reports whether the sink was called.
func (c *Consumer) Handle(ctx context.Context, m kafka.Message) (bool, error) {
	var n contracts.StatusNotification
	if err := json.Unmarshal(m.Value, &n); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n.Audience == "" || n.Broadcast.EventID == "" {
		return false, fmt.Errorf("%w: missing audience or event id", ErrMalformed)
	}

	var ran bool
	err := storage.WithTx(ctx, c.store, func(tx storage.Tx) error {
		var err error
		ran, err = idempotency.Once(ctx, tx, inboxHandler(n.Audience), n.Broadcast.EventID, c.now(), func(ctx context.Context) error {
			return c.sink.Deliver(ctx, n)
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return ran, nil
}

// Run fetches, handles and commits messages until ctx is done. Malformed
// messages are committed and dropped; a failed delivery is retried before
// the offset moves on.
func (c *Consumer) Run(ctx context.Context, r Reader) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.ErrorContext(ctx, "kafka fetch failed", "error", err)
			if !sleep(ctx, c.Backoff) {
				return nil
			}
			continue
		}

		for {
			_, err := c.Handle(ctx, m)
			if err == nil {
				break
			}
			if errors.Is(err, ErrMalformed) {
				c.logger.WarnContext(ctx, "notification dropped", "offset", m.Offset, "error", err)
				break
			}
			c.logger.ErrorContext(ctx, "notification failed", "offset", m.Offset, "error", err)
			if !sleep(ctx, c.Backoff) {
				return nil
			}
		}
		if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "kafka commit failed", "offset", m.Offset, "error", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
