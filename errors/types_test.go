package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      *QuillError
		wantType ErrorType
		wantCode int
		wantMsg  string
	}{
		{"validation", NewValidationError("r1", "invalid input", nil), ValidationError, http.StatusBadRequest, "invalid input"},
		{"provider", NewProviderError("r1", "Summarize", cause), ProviderError, http.StatusBadGateway, "Summarize failed"},
		{"unavailable", NewUnavailableError("r1", "no provider available", cause), UnavailableError, http.StatusServiceUnavailable, "no provider available"},
		{"rate limit", NewRateLimitError("r1", 60), RateLimitError, http.StatusTooManyRequests, "Rate limit exceeded"},
		{"auth", NewAuthError("r1", "invalid API key", nil), AuthenticationError, http.StatusUnauthorized, "invalid API key"},
		{"not found", NewNotFoundError("r1", "/nope"), NotFoundError, http.StatusNotFound, "Resource not found"},
		{"internal", NewInternalError("r1", cause), InternalError, http.StatusInternalServerError, "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantMsg, tt.err.Message)
			assert.Equal(t, "r1", tt.err.RequestID)
		})
	}
}

func TestProviderErrorHidesCause(t *testing.T) {
	err := NewProviderError("r", "Context analysis", errors.New("401 invalid key sk-123"))
	assert.Equal(t, "Context analysis failed", err.Message)
	assert.NotContains(t, err.Message, "sk-123")
}

func TestNewRateLimitError(t *testing.T) {
	err := NewRateLimitError("r", 30)
	assert.Equal(t, 30, err.Details["retry_after"])
}

func TestNewConfigError(t *testing.T) {
	cause := errors.New("unknown provider")
	err := NewConfigError("invalid configuration", cause)
	assert.Equal(t, ConfigError, err.Type)
	assert.Empty(t, err.RequestID)
	assert.ErrorIs(t, err, cause)
}
