package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yummyzoom"

// subsystem turns a service name like "order-service" into a valid metric
// name fragment.
func subsystem(service string) string {
	return strings.ReplaceAll(service, "-", "_")
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem(service),
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem(service),
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

func (m *ServerMetrics) Observe(handler string, status int, start time.Time) {
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
}

type OutboxMetrics struct {
	Processed      *prometheus.CounterVec
	Failed         *prometheus.CounterVec
	DrainLatencyMS prometheus.Histogram
	LastBatch      prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer, service string) *OutboxMetrics {
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem(service),
		Name:      "outbox_processed_total",
		Help:      "Outbox messages dispatched to every handler successfully.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem(service),
		Name:      "outbox_failed_total",
		Help:      "Outbox dispatch attempts where at least one handler failed.",
	}, []string{"type"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem(service),
		Name:      "outbox_drain_duration_ms",
		Help:      "Duration of one outbox drain in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
	batch := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem(service),
		Name:      "outbox_last_batch_size",
		Help:      "Pending messages fetched by the most recent drain.",
	})

	reg.MustRegister(processed, failed, latency, batch)
	return &OutboxMetrics{Processed: processed, Failed: failed, DrainLatencyMS: latency, LastBatch: batch}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
