package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/teilomillet/quill/server/provider"
)

// StatusReporter reports the state of the completion backends.
type StatusReporter interface {
	States() []provider.ProviderState
	Available() bool
}

type healthResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Providers []provider.ProviderState `json:"providers"`
}

// Health answers with the provider health and circuit breaker states. It
// returns 503 when no backend can take a request.
func Health(reporter StatusReporter, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Providers: reporter.States(),
		}
		if resp.Providers == nil {
			resp.Providers = []provider.ProviderState{}
		}
		code := http.StatusOK
		if !reporter.Available() {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, code, resp)
	}
}

// Liveness answers a plain OK.
func Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
