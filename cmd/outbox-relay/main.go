package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/handlers"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/backend"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/telemetry"
)

// outbox-relay drains the outbox for an order-service running without
// OUTBOX_INLINE. Several replicas may run; handlers are idempotent.
func main() {
	cfg, err := config.Load("outbox-relay")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.Init(cfg.Service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.Service, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("tracer error: %v", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := backend.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	d, closeDispatcher, err := handlers.NewDispatcher(cfg, store, logger, reg)
	if err != nil {
		log.Fatalf("outbox error: %v", err)
	}
	defer closeDispatcher()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	logger.Info("outbox-relay started", "interval", cfg.Outbox.Interval.String(), "batch", cfg.Outbox.BatchSize, "relay", cfg.Outbox.Relay)
	_ = d.Run(ctx, cfg.Outbox.Interval)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("outbox-relay stopped")
}
