package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/quill/server/metrics"
)

func TestQueueMiddleware(t *testing.T) {
	t.Run("basic queue functionality", func(t *testing.T) {
		m := metrics.NewMetrics()
		qm := NewQueueMiddleware(5, m)

		var position int
		handler := qm.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			position, _ = QueuePosition(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/summarize", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 0, position)
		assert.Equal(t, float64(0), testutil.ToFloat64(m.QueueLength))
		assert.Equal(t, 0, qm.GetQueueSize())
		assert.Equal(t, int32(0), qm.GetProcessing())
	})

	t.Run("full queue rejects", func(t *testing.T) {
		m := metrics.NewMetrics()
		qm := NewQueueMiddleware(2, m)

		release := make(chan struct{})
		var entered sync.WaitGroup
		entered.Add(2)
		handler := qm.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entered.Done()
			<-release
			w.WriteHeader(http.StatusOK)
		}))

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
			}()
		}
		entered.Wait()
		assert.Equal(t, float64(2), testutil.ToFloat64(m.QueueLength))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "unavailable_error")
		assert.Equal(t, float64(1), testutil.ToFloat64(m.QueueRejected))

		close(release)
		wg.Wait()
		assert.Equal(t, 0, qm.GetQueueSize())
	})

	t.Run("queue size adjustment", func(t *testing.T) {
		qm := NewQueueMiddleware(0, nil)
		handler := qm.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

		qm.SetMaxSize(1)
		assert.Equal(t, int64(1), qm.GetMaxSize())
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestQueueShutdown(t *testing.T) {
	qm := NewQueueMiddleware(4, nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	handler := qm.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))

	go handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, qm.Shutdown(ctx), context.DeadlineExceeded)

	// closed queues admit nothing
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	close(release)
	require.NoError(t, qm.Shutdown(context.Background()))
}
