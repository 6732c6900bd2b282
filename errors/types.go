package errors

import (
	"net/http"
)

// NewError creates a QuillError with full control over its fields. Prefer the
// specialized constructors below.
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *QuillError {
	return &QuillError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewValidationError reports a request that can not be processed as sent:
// malformed JSON, a missing text or task parameter, an out of range value or
// an input above the token budget.
//
// Example:
//
//	err := NewValidationError("req_123", "Invalid request", map[string]interface{}{
//	    "field": "deleteText",
//	    "error": "required",
//	})
func NewValidationError(requestID, message string, validationDetails map[string]interface{}) *QuillError {
	return &QuillError{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewProviderError reports a failed backend call. The message is the generic
// "<task> failed"; the backend error is kept as the cause and never exposed.
func NewProviderError(requestID, task string, err error) *QuillError {
	return &QuillError{
		Type:      ProviderError,
		Message:   task + " failed",
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewUnavailableError reports that no backend can take the request right now.
func NewUnavailableError(requestID, message string, err error) *QuillError {
	return &QuillError{
		Type:      UnavailableError,
		Message:   message,
		Code:      http.StatusServiceUnavailable,
		RequestID: requestID,
		err:       err,
	}
}

// NewRateLimitError reports an exhausted request budget. retryAfter is in
// seconds.
func NewRateLimitError(requestID string, retryAfter int) *QuillError {
	return &QuillError{
		Type:      RateLimitError,
		Message:   "Rate limit exceeded",
		Code:      http.StatusTooManyRequests,
		RequestID: requestID,
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
	}
}

// NewAuthError reports a missing or unknown API key.
func NewAuthError(requestID, message string, err error) *QuillError {
	return &QuillError{
		Type:      AuthenticationError,
		Message:   message,
		Code:      http.StatusUnauthorized,
		RequestID: requestID,
		err:       err,
		Details: map[string]interface{}{
			"suggestion": "Send a configured key in the Authorization or X-API-Key header",
		},
	}
}

// NewNotFoundError reports an unknown path.
func NewNotFoundError(requestID, path string) *QuillError {
	return &QuillError{
		Type:      NotFoundError,
		Message:   "Resource not found",
		Code:      http.StatusNotFound,
		RequestID: requestID,
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

// NewConfigError reports an invalid configuration. It is used by the CLI and
// the reload path, where there is no request.
func NewConfigError(message string, err error) *QuillError {
	return &QuillError{
		Type:    ConfigError,
		Message: message,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// NewInternalError reports an unexpected failure.
func NewInternalError(requestID string, err error) *QuillError {
	return &QuillError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
