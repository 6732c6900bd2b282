// Package metrics holds the Prometheus registry of the server and the
// collectors shared by the HTTP layer and the transform pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates Prometheus metrics for the server.
type Metrics struct {
	registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  *prometheus.GaugeVec
	ErrorsTotal     *prometheus.CounterVec
	RateLimitHits   *prometheus.CounterVec

	// Transform pipeline
	TransformsTotal   *prometheus.CounterVec
	FieldPlaceholders *prometheus.CounterVec
	FieldFallbacks    *prometheus.CounterVec

	// Admission queue
	QueueLength   prometheus.Gauge
	QueueRejected prometheus.Counter
}

// NewMetrics creates a new Metrics instance with a custom registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quill_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ActiveRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quill_http_active_requests",
				Help: "Number of currently active HTTP requests",
			},
			[]string{"endpoint"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_rate_limit_hits_total",
				Help: "Total number of rate limited requests by client",
			},
			[]string{"client"},
		),
		TransformsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_transforms_total",
				Help: "Transform requests by task and outcome",
			},
			[]string{"task", "outcome"},
		),
		FieldPlaceholders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_extract_placeholders_total",
				Help: "Extracted fields that fell back to their placeholder",
			},
			[]string{"task", "field"},
		),
		FieldFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_extract_line_fallbacks_total",
				Help: "Extractions resolved by positional line assignment",
			},
			[]string{"task"},
		),
		QueueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quill_queue_length",
			Help: "Number of requests currently admitted by the queue",
		}),
		QueueRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_queue_rejected_total",
			Help: "Requests rejected because the queue was full",
		}),
	}

	// Register default Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m.RequestsTotal.WithLabelValues("/health", "200").Add(0)
	m.RequestsTotal.WithLabelValues("/metrics", "200").Add(0)

	return m
}

// Registry exposes the registry so other components can add their collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns a handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
}
