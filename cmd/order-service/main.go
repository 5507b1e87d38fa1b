package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/handlers"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/order/app"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/order/httpapi"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/payment"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/backend"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("order-service")
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

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := backend.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var gateway payment.Gateway = payment.NewStubGateway()
	if cfg.PaymentBaseURL != "" {
		gateway = payment.NewHTTPGateway(cfg.PaymentBaseURL, cfg.RequestTimeout)
	}
	svc := app.NewService(store, gateway, app.PricingFromConfig(cfg.Pricing),
		app.WithLogger(logger),
		app.WithRetry(app.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    time.Second,
		}),
	)

	if cfg.Outbox.Inline {
		d, closeDispatcher, err := handlers.NewDispatcher(cfg, store, logger, reg)
		if err != nil {
			log.Fatalf("outbox error: %v", err)
		}
		defer closeDispatcher()
		go func() { _ = d.Run(ctx, cfg.Outbox.Interval) }()
	}

	router := httpapi.NewRouter(httpapi.NewHandler(svc), httpapi.RouterConfig{
		Metrics:        metrics.NewServerMetrics(reg, cfg.Service),
		Gatherer:       reg,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		Health:         pinger(store),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("tracer shutdown failed", "error", err)
		}
	}()

	logger.Info("order-service listening", "port", cfg.Port, "inline_outbox", cfg.Outbox.Inline, "notifier", cfg.Notifier)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
	<-ctx.Done()
	slog.Info("order-service stopped")
}

func pinger(store storage.Storage) func(ctx context.Context) error {
	p, ok := store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping
}
