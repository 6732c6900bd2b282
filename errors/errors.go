// Package errors provides the structured error type returned by the Quill
// HTTP API, together with JSON response helpers and zap based logging.
//
// Every failure that reaches a client is a *QuillError. The type is serialized
// as
//
//	{"type": "provider_error", "message": "Summarize failed", "request_id": "..."}
//
// and carries the HTTP status code and the underlying cause, neither of which
// is exposed in the JSON body.
//
// Basic usage:
//
//	errors.WriteError(w, errors.NewValidationError(requestID, "text is required", nil))
//
//	errors.ErrorWithType(w, "Invalid input", errors.ValidationError, http.StatusBadRequest)
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the package logger. It starts as a production logger and
// is replaced by the server logger through SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger replaces DefaultLogger. A nil logger is ignored.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType categorizes a QuillError for clients.
type ErrorType string

const (
	// ValidationError is a malformed or incomplete request.
	ValidationError ErrorType = "validation_error"

	// ProviderError is a failed call to the completion backend.
	ProviderError ErrorType = "provider_error"

	// UnavailableError means no completion backend can serve the request,
	// e.g. every circuit breaker is open or the admission queue is full.
	UnavailableError ErrorType = "unavailable_error"

	// RateLimitError is returned when a client exceeds its request budget.
	RateLimitError ErrorType = "rate_limit_error"

	// AuthenticationError is a missing or unknown API key.
	AuthenticationError ErrorType = "authentication_error"

	// NotFoundError is an unknown route or task.
	NotFoundError ErrorType = "not_found"

	// ConfigError is an invalid configuration.
	ConfigError ErrorType = "config_error"

	// InternalError is everything else, panics included.
	InternalError ErrorType = "internal_error"
)

// QuillError is the error returned to API clients.
type QuillError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      int                    `json:"-"`
	RequestID string                 `json:"request_id"`
	Details   map[string]interface{} `json:"details,omitempty"`

	err error
}

// Error combines the type, the message and the cause, if any.
func (e *QuillError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the cause.
func (e *QuillError) Unwrap() error {
	return e.err
}

// Is matches on the error type only, so
//
//	errors.Is(err, &QuillError{Type: ProviderError})
//
// holds for any provider error.
func (e *QuillError) Is(target error) bool {
	t, ok := target.(*QuillError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail returns e with an additional detail entry.
func (e *QuillError) WithDetail(key string, value interface{}) *QuillError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WriteError writes err as a JSON response with its status code.
func WriteError(w http.ResponseWriter, err *QuillError) {
	code := err.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encErr := json.NewEncoder(w).Encode(err); encErr != nil {
		DefaultLogger.Warn("failed to encode error response",
			zap.Error(encErr),
			zap.String("request_id", err.RequestID),
		)
	}
}

// Error is a drop-in replacement for http.Error producing an InternalError.
// The request ID is read from the X-Request-ID response header.
func Error(w http.ResponseWriter, message string, code int) {
	ErrorWithType(w, message, InternalError, code)
}

// ErrorWithType is Error with an explicit error type.
func ErrorWithType(w http.ResponseWriter, message string, errType ErrorType, code int) {
	WriteError(w, &QuillError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: w.Header().Get("X-Request-ID"),
	})
}
