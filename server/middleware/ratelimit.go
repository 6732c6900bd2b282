package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teilomillet/quill/config"
	"github.com/teilomillet/quill/errors"
	"github.com/teilomillet/quill/server/metrics"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per client token bucket keyed by remote IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      config.RateLimitConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter. m may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
	}
}

// Update applies a new configuration. Existing buckets are dropped so the new
// rate takes effect immediately.
func (rl *RateLimiter) Update(cfg config.RateLimitConfig) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cfg = cfg
	rl.visitors = make(map[string]*visitor)
}

// Allow consumes a token for client. It returns false and the suggested wait
// when the bucket is empty.
func (rl *RateLimiter) Allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.cfg.Enabled || rl.cfg.RequestsPerMinute <= 0 {
		return true, 0
	}

	v, ok := rl.visitors[client]
	if !ok {
		burst := rl.cfg.Burst
		if burst <= 0 {
			burst = rl.cfg.RequestsPerMinute
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.cfg.RequestsPerMinute)), burst)}
		rl.visitors[client] = v
	}
	v.lastSeen = rl.now()

	res := v.limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

// Handler is the middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		ok, wait := rl.Allow(client)
		if !ok {
			if rl.metrics != nil {
				rl.metrics.RateLimitHits.WithLabelValues(client).Inc()
			}
			retryAfter := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			errors.WriteError(w, errors.NewRateLimitError(GetRequestID(r.Context()), retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup evicts buckets idle for longer than the cleanup interval. It blocks
// until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	rl.mu.Lock()
	interval := rl.cfg.CleanupInterval
	rl.mu.Unlock()
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(interval)
		}
	}
}

func (rl *RateLimiter) evict(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-idle)
	for k, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, k)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
