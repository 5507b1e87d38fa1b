package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/realtime"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/kafka"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

// NewDispatcher builds an outbox dispatcher with the revenue recorder, the
// status broadcaster on the configured notifier and, when cfg.Outbox.Relay
// is set, the Kafka event relay. The close function releases the transports.
func NewDispatcher(cfg config.Config, store storage.Storage, logger *slog.Logger, reg prometheus.Registerer) (*outbox.Dispatcher, func() error, error) {
	notifier, closeNotifier, err := realtime.Open(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("notifier: %w", err)
	}
	closers := []func() error{closeNotifier}
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	subs := []Subscriber{
		NewRevenueRecorder(store, logger),
		NewStatusBroadcaster(store, notifier, logger),
	}
	if cfg.Outbox.Relay {
		w, err := kafka.NewClient(cfg.Kafka.Brokers).NewWriter(cfg.Kafka.EventsTopic)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("event relay: %w", err)
		}
		closers = append(closers, w.Close)
		subs = append(subs, NewEventRelay(store, w, logger))
	}

	d := outbox.NewDispatcher(store,
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
		outbox.WithConcurrency(cfg.Outbox.Concurrency),
		outbox.WithLogger(logger),
		outbox.WithMetrics(metrics.NewOutboxMetrics(reg, cfg.Service)),
	)
	Register(d, subs...)
	return d, closeAll, nil
}
