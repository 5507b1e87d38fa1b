package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/notification"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/backend"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/kafka"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
)

func main() {
	cfg, err := config.Load("notification-service")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.Init(cfg.Service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := backend.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer store.Close()

	reader, err := kafka.NewClient(cfg.Kafka.Brokers).NewReader(cfg.Kafka.StatusTopic, cfg.Kafka.GroupID)
	if err != nil {
		log.Fatalf("kafka error: %v", err)
	}
	defer reader.Close()

	consumer := notification.NewConsumer(store, notification.LogSink{Logger: logger}, logger)
	go func() { _ = consumer.Run(ctx, reader) }()

	reg := prometheus.NewRegistry()
	srvMetrics := metrics.NewServerMetrics(reg, cfg.Service)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if p, ok := store.(interface{ Ping(context.Context) error }); ok {
			if err := p.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db_error"})
				srvMetrics.Observe("health", http.StatusServiceUnavailable, start)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		srvMetrics.Observe("health", http.StatusOK, start)
	})
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("notification-service listening", "port", cfg.Port, "topic", cfg.Kafka.StatusTopic)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
