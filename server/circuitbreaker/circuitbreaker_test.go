package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errBackend = errors.New("backend down")

func newTestBreaker(t *testing.T, registry *prometheus.Registry) (*CircuitBreaker, *Collectors) {
	t.Helper()
	collectors := NewCollectors(registry)
	cb := NewCircuitBreaker("primary", Config{
		FailureThreshold: 2,
		ResetTimeout:     50 * time.Millisecond,
		HalfOpenRequests: 1,
	}, zaptest.NewLogger(t), collectors)
	return cb, collectors
}

func TestCircuitBreakerTrips(t *testing.T) {
	cb, collectors := newTestBreaker(t, prometheus.NewRegistry())

	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.True(t, cb.IsOpen())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not invoke the call")

	assert.Equal(t, float64(2), testutil.ToFloat64(collectors.Failures.WithLabelValues("primary")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collectors.Trips.WithLabelValues("primary")))
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(collectors.State.WithLabelValues("primary")))
}

func TestCircuitBreakerRecovers(t *testing.T) {
	cb, collectors := newTestBreaker(t, nil)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBackend })
	}
	require.True(t, cb.IsOpen())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, float64(gobreaker.StateClosed), testutil.ToFloat64(collectors.State.WithLabelValues("primary")))
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, _ := newTestBreaker(t, nil)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBackend })
	}
	time.Sleep(80 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	assert.True(t, cb.IsOpen())
}

func TestCollectorsRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	cb, _ := newTestBreaker(t, registry)
	_ = cb.Execute(func() error { return errBackend })

	count, err := testutil.GatherAndCount(registry, "quill_circuit_breaker_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "primary", cb.Name())
}
