package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/teilomillet/quill/server/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	m := metrics.NewMetrics()

	r := chi.NewRouter()
	r.Use(PrometheusMetrics(m))
	r.Post("/humanize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/summarize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	tests := []struct {
		path     string
		status   string
		endpoint string
	}{
		{path: "/humanize", status: "200", endpoint: "/humanize"},
		{path: "/summarize", status: "502", endpoint: "/summarize"},
		{path: "/nope/123", status: "404", endpoint: "unmatched"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, tt.path, nil))
			assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues(tt.endpoint, tt.status)))
		})
	}

	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveRequests.WithLabelValues("all")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("server_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("client_error")))
}

func TestLogging(t *testing.T) {
	handler := RequestID(Logging(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
