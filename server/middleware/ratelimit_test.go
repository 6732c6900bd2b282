package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/teilomillet/quill/config"
	"github.com/teilomillet/quill/server/metrics"
)

func TestRateLimiter(t *testing.T) {
	m := metrics.NewMetrics()
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 3}, m)

	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/summarize", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)
	}
	rec := send("10.0.0.1:5678")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_error")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitHits.WithLabelValues("10.0.0.1")))

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234").Code)
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1, Burst: 1}, nil)
	for i := 0; i < 5; i++ {
		ok, _ := rl.Allow("c")
		assert.True(t, ok)
	}
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiterUpdate(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}, nil)
	ok, _ := rl.Allow("c")
	assert.True(t, ok)
	ok, wait := rl.Allow("c")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	rl.Update(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 600, Burst: 5})
	ok, _ = rl.Allow("c")
	assert.True(t, ok)
}

func TestRateLimiterEvict(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 10}, nil)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("old")

	rl.now = func() time.Time { return now.Add(2 * time.Minute) }
	rl.Allow("new")
	rl.evict(time.Minute)
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiterCleanupStops(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{CleanupInterval: 5 * time.Millisecond}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		rl.Cleanup(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop")
	}
}
