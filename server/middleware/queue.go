package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue/v2"

	"github.com/teilomillet/quill/errors"
	"github.com/teilomillet/quill/server/metrics"
)

type queueContextKey string

const queuePositionKey queueContextKey = "queue_position"

// QueueMiddleware bounds the number of requests admitted at once. Each
// admitted request holds a slot in a FIFO queue until its handler returns;
// when every slot is taken new requests are rejected with 503.
type QueueMiddleware struct {
	queue      *queue.Queue[chan struct{}]
	maxSize    atomic.Int64
	mu         sync.Mutex
	processing atomic.Int32
	metrics    *metrics.Metrics
	closed     atomic.Bool
}

// NewQueueMiddleware creates a queue admitting maxSize requests. m may be nil.
func NewQueueMiddleware(maxSize int64, m *metrics.Metrics) *QueueMiddleware {
	qm := &QueueMiddleware{
		queue:   queue.New[chan struct{}](),
		metrics: m,
	}
	qm.maxSize.Store(maxSize)
	return qm
}

// SetMaxSize updates the number of admitted requests. It takes effect for the
// next request.
func (qm *QueueMiddleware) SetMaxSize(size int64) {
	qm.maxSize.Store(size)
}

// GetMaxSize returns the current bound.
func (qm *QueueMiddleware) GetMaxSize() int64 {
	return qm.maxSize.Load()
}

// GetQueueSize returns the number of admitted requests.
func (qm *QueueMiddleware) GetQueueSize() int {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	return qm.queue.Length()
}

// GetProcessing returns the number of requests inside the next handler.
func (qm *QueueMiddleware) GetProcessing() int32 {
	return qm.processing.Load()
}

// Shutdown stops admitting requests and waits for the admitted ones to finish
// or for ctx to be done.
func (qm *QueueMiddleware) Shutdown(ctx context.Context) error {
	qm.closed.Store(true)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if qm.GetQueueSize() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("queue drain: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Handler is the middleware.
func (qm *QueueMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		qm.mu.Lock()
		position := qm.queue.Length()
		if qm.closed.Load() || int64(position) >= qm.maxSize.Load() {
			qm.mu.Unlock()
			if qm.metrics != nil {
				qm.metrics.QueueRejected.Inc()
			}
			errors.WriteError(w, errors.NewUnavailableError(GetRequestID(r.Context()), "Queue is full", nil))
			return
		}
		done := make(chan struct{})
		qm.queue.Add(done)
		qm.observe()
		qm.mu.Unlock()

		qm.processing.Add(1)
		defer func() {
			qm.processing.Add(-1)
			close(done)
			qm.mu.Lock()
			qm.queue.Remove()
			qm.observe()
			qm.mu.Unlock()
		}()

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), queuePositionKey, position)))
	})
}

// QueuePosition returns the number of requests that were admitted ahead of
// the current one.
func QueuePosition(ctx context.Context) (int, bool) {
	p, ok := ctx.Value(queuePositionKey).(int)
	return p, ok
}

// observe must be called with mu held.
func (qm *QueueMiddleware) observe() {
	if qm.metrics != nil {
		qm.metrics.QueueLength.Set(float64(qm.queue.Length()))
	}
}
