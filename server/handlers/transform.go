// Package handlers provides the HTTP handlers of the Quill server: one
// transform handler per task, the save/read store handlers and the health
// endpoints.
package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/teilomillet/quill/errors"
	"github.com/teilomillet/quill/prompt"
	"github.com/teilomillet/quill/server/circuitbreaker"
	"github.com/teilomillet/quill/server/middleware"
	"github.com/teilomillet/quill/server/processing"
	"github.com/teilomillet/quill/server/provider"
	"github.com/teilomillet/quill/server/validation"
)

// TransformHandler serves the task endpoints.
type TransformHandler struct {
	processor *processing.Processor
	validator *validation.Validator
	logger    *zap.Logger
}

// NewTransformHandler creates a TransformHandler.
func NewTransformHandler(processor *processing.Processor, validator *validation.Validator, logger *zap.Logger) *TransformHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransformHandler{processor: processor, validator: validator, logger: logger}
}

// Handle returns the handler of task.
//
// The body is validated before anything is sent to the backend. The backend
// call is detached from the client: a disconnect does not abort it, its
// timeout belongs to the backend client.
func (h *TransformHandler) Handle(task prompt.Task) http.Handler {
	info, known := prompt.Lookup(task)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		if !known {
			errors.WriteError(w, errors.NewNotFoundError(requestID, r.URL.Path))
			return
		}

		logger := h.logger.With(
			zap.String("request_id", requestID),
			zap.String("task", string(task)),
		)

		body, qe := h.validator.Parse(r, task, requestID)
		if qe != nil {
			errors.LogError(logger, qe, requestID)
			errors.WriteError(w, qe)
			return
		}

		start := time.Now()
		ctx := context.WithoutCancel(r.Context())
		resp, err := h.processor.Process(ctx, body.ToPrompt(task))
		if err != nil {
			qe := classify(requestID, info, err)
			errors.LogError(logger, qe, requestID)
			errors.WriteError(w, qe)
			return
		}

		logger.Info("transform completed",
			zap.Duration("duration", time.Since(start)),
			zap.Int("text_len", len(body.Text)),
		)
		writeJSON(w, logger, http.StatusOK, resp)
	})
}

// classify maps a processing error to its client error.
func classify(requestID string, info prompt.Info, err error) *errors.QuillError {
	switch {
	case stderrors.Is(err, provider.ErrNoProvider), stderrors.Is(err, circuitbreaker.ErrCircuitOpen):
		return errors.NewUnavailableError(requestID, "No completion backend available", err)
	case stderrors.Is(err, processing.ErrUnknownTask):
		return errors.NewNotFoundError(requestID, info.Path)
	default:
		return errors.NewProviderError(requestID, info.Title, err)
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
