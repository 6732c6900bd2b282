package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredCollectors(t *testing.T) {
	m := NewMetrics()
	m.TransformsTotal.WithLabelValues("humanize", "success").Inc()

	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "quill_test_extra_total", Help: "extra"})
	m.Registry().MustRegister(extra)
	extra.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `quill_transforms_total{outcome="success",task="humanize"} 1`)
	assert.Contains(t, string(body), "quill_test_extra_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestSeparateInstancesDoNotShareState(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.QueueRejected.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.QueueRejected))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.QueueRejected))
}
