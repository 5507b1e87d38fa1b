package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/payment"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
)

// payment-service is a stand-in card processor. It has no database; intents
// live in memory and cards ending in DECLINE_SUFFIX are declined.
type cfg struct {
	Port          string
	LogLevel      string
	DeclineSuffix string
}

func readCfg() cfg {
	return cfg{
		Port:          getenv("PORT", "8080"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		DeclineSuffix: getenv("DECLINE_SUFFIX", "0000"),
	}
}

func main() {
	cfg := readCfg()
	logger := logging.Init("payment-service", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway := payment.NewStubGateway()
	gateway.DeclineSuffix = cfg.DeclineSuffix

	reg := prometheus.NewRegistry()
	srvMetrics := metrics.NewServerMetrics(reg, "payment-service")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			srvMetrics.Observe(r.URL.Path, ww.Status(), start)
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(reg))
	payment.Routes(r, gateway)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("payment-service listening", "port", cfg.Port, "decline_suffix", cfg.DeclineSuffix)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
