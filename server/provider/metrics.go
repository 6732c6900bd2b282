package provider

import "github.com/prometheus/client_golang/prometheus"

type managerMetrics struct {
	requestLatency      *prometheus.HistogramVec
	healthCheckDuration prometheus.Histogram
	healthCheckErrors   *prometheus.CounterVec
	healthyProviders    *prometheus.GaugeVec
}

// newManagerMetrics creates the manager collectors, registering them when
// registry is non-nil.
func newManagerMetrics(registry prometheus.Registerer) *managerMetrics {
	m := &managerMetrics{
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quill_provider_request_duration_seconds",
			Help:    "Latency of completion calls by provider and outcome",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "outcome"}),
		healthCheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "quill_provider_health_check_duration_seconds",
			Help: "Duration of provider health checks",
		}),
		healthCheckErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_provider_health_check_errors_total",
			Help: "Number of health check errors by provider",
		}, []string{"provider"}),
		healthyProviders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quill_provider_healthy",
			Help: "Whether the provider passed its last health check (1) or not (0)",
		}, []string{"provider"}),
	}

	if registry != nil {
		registry.MustRegister(
			m.requestLatency,
			m.healthCheckDuration,
			m.healthCheckErrors,
			m.healthyProviders,
		)
	}
	return m
}
