package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
)

// Store is the slice of persistence the dispatcher needs.
type Store interface {
	FetchPendingOutbox(ctx context.Context, limit int) ([]Message, error)
	MarkOutboxProcessed(ctx context.Context, id string, at time.Time) error
	MarkOutboxFailed(ctx context.Context, id string, reason string) error
}

// Handler reacts to one outbox message. Handlers must be idempotent: a
// message is redelivered until every handler registered for its type succeeds.
type Handler interface {
	Name() string
	Handle(ctx context.Context, msg Message) error
}

type DrainResult struct {
	Fetched   int
	Processed int
	Failed    int
	// Deferred counts messages left pending because an earlier message with
	// the same key failed in this drain.
	Deferred int
}

type Dispatcher struct {
	store       Store
	handlers    map[string][]Handler
	batchSize   int
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.OutboxMetrics
	tracer      trace.Tracer
	now         func() time.Time
}

type Option func(*Dispatcher)

func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithConcurrency bounds how many message keys are dispatched in parallel.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

func WithMetrics(m *metrics.OutboxMetrics) Option { return func(d *Dispatcher) { d.metrics = m } }

func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

func NewDispatcher(store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		handlers:    make(map[string][]Handler),
		batchSize:   100,
		concurrency: 4,
		logger:      slog.Default(),
		tracer:      otel.Tracer("github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register subscribes h to the given event types. Register is not safe to
// call concurrently with Drain.
func (d *Dispatcher) Register(h Handler, eventTypes ...string) {
	for _, t := range eventTypes {
		d.handlers[t] = append(d.handlers[t], h)
	}
}

func (d *Dispatcher) Handlers(eventType string) []Handler {
	return d.handlers[eventType]
}

// Drain dispatches one batch of pending messages. Handler failures are
// recorded on the message and never abort the batch; store errors are
// returned and leave the affected message pending.
func (d *Dispatcher) Drain(ctx context.Context) (DrainResult, error) {
	ctx, span := d.tracer.Start(ctx, "outbox.drain")
	defer span.End()
	start := time.Now()

	msgs, err := d.store.FetchPendingOutbox(ctx, d.batchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch pending")
		return DrainResult{}, fmt.Errorf("outbox: fetch pending: %w", err)
	}
	span.SetAttributes(attribute.Int("outbox.fetched", len(msgs)))

	var processed, failed, deferred atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, group := range groupByKey(msgs) {
		g.Go(func() error {
			for i, m := range group {
				ok, err := d.dispatch(gctx, m)
				if err != nil {
					return err
				}
				if !ok {
					// Later messages for the key wait for the failed one.
					failed.Add(1)
					deferred.Add(int64(len(group) - i - 1))
					return nil
				}
				processed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	res := DrainResult{
		Fetched:   len(msgs),
		Processed: int(processed.Load()),
		Failed:    int(failed.Load()),
		Deferred:  int(deferred.Load()),
	}
	if d.metrics != nil {
		d.metrics.LastBatch.Set(float64(res.Fetched))
		d.metrics.DrainLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch")
		return res, err
	}
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, m Message) (bool, error) {
	var errs []error
	for _, h := range d.handlers[m.Type] {
		if err := h.Handle(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.Name(), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		d.logger.WarnContext(ctx, "outbox handler failed",
			logging.KeyEventID, m.ID, logging.KeyStep, m.Type, "attempt", m.Attempts+1, "error", err)
		if d.metrics != nil {
			d.metrics.Failed.WithLabelValues(m.Type).Inc()
		}
		if merr := d.store.MarkOutboxFailed(ctx, m.ID, err.Error()); merr != nil {
			return false, fmt.Errorf("outbox: mark %s failed: %w", m.ID, merr)
		}
		return false, nil
	}

	if err := d.store.MarkOutboxProcessed(ctx, m.ID, d.now()); err != nil {
		return false, fmt.Errorf("outbox: mark %s processed: %w", m.ID, err)
	}
	if d.metrics != nil {
		d.metrics.Processed.WithLabelValues(m.Type).Inc()
	}
	return true, nil
}

// Run drains every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		res, err := d.Drain(ctx)
		if err != nil && ctx.Err() == nil {
			d.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
		} else if res.Fetched > 0 {
			d.logger.InfoContext(ctx, "outbox drained",
				"fetched", res.Fetched, "processed", res.Processed, "failed", res.Failed, "deferred", res.Deferred)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// groupByKey keeps occurrence order within a key; distinct keys may run in
// parallel. A key's group stops at its first failed message.
func groupByKey(msgs []Message) [][]Message {
	index := make(map[string]int)
	var groups [][]Message
	for _, m := range msgs {
		i, ok := index[m.Key]
		if !ok || m.Key == "" {
			groups = append(groups, nil)
			i = len(groups) - 1
			if m.Key != "" {
				index[m.Key] = i
			}
		}
		groups[i] = append(groups[i], m)
	}
	return groups
}
