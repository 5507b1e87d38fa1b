// Package httpapi exposes the order use cases over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
)

type RouterConfig struct {
	Metrics        *metrics.ServerMetrics
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
	RequestTimeout time.Duration
	// Health reports whether the service can reach its dependencies.
	Health func(ctx context.Context) error
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observe(cfg.Metrics, cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", health(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Post("/orders", h.InitiateOrder)
		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Post("/accept", h.AcceptOrder)
			r.Post("/reject", h.RejectOrder)
			r.Post("/cancel", h.CancelOrder)
			r.Post("/preparing", h.MarkPreparing)
			r.Post("/ready", h.MarkReady)
			r.Post("/delivered", h.MarkDelivered)
			r.Post("/coupon", h.ApplyCoupon)
			r.Delete("/coupon", h.RemoveCoupon)
		})
		r.Post("/payments/webhook", h.PaymentWebhook)
		r.Post("/coupons", h.CreateCoupon)
		r.Post("/coupons/{id}/enable", h.SetCouponEnabled(true))
		r.Post("/coupons/{id}/disable", h.SetCouponEnabled(false))
	})
	return r
}

// observe records request count and latency per route pattern and writes one
// structured log line per request.
func observe(m *metrics.ServerMetrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			if m != nil {
				m.Observe(route, status, start)
			}
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db_error"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
