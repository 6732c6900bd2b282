package errors

import (
	"errors"
)

// RequestIDKey is the log field name of the request ID.
const RequestIDKey = "request_id"

// ErrorResponse is the JSON body of an error, as decoded by clients.
type ErrorResponse struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// As wraps errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is wraps errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// TypeOf returns the type of the first QuillError in err's chain, or
// InternalError when there is none.
func TypeOf(err error) ErrorType {
	var qe *QuillError
	if As(err, &qe) {
		return qe.Type
	}
	return InternalError
}
