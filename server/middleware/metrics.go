package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/teilomillet/quill/server/metrics"
)

// PrometheusMetrics middleware records HTTP metrics using Prometheus. Requests
// are labelled with their chi route pattern so path parameters and unknown
// paths do not grow the label set.
func PrometheusMetrics(m *metrics.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.ActiveRequests.WithLabelValues("all").Inc()
			defer m.ActiveRequests.WithLabelValues("all").Dec()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			endpoint := routePattern(r)
			code := status(ww)
			m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
			m.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

			switch {
			case code >= 500:
				m.ErrorsTotal.WithLabelValues("server_error").Inc()
			case code >= 400:
				m.ErrorsTotal.WithLabelValues("client_error").Inc()
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
