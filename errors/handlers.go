package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// ErrorHandler recovers panics from next and answers them with an
// InternalError. The panic value and stack are logged, never returned.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					requestID := w.Header().Get("X-Request-ID")
					logger.Error("panic recovered",
						zap.Any("error", v),
						zap.ByteString("stacktrace", debug.Stack()),
						zap.String("request_id", requestID),
						zap.String("path", r.URL.Path),
					)
					WriteError(w, NewInternalError(requestID, fmt.Errorf("panic: %v", v)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// LogError logs err with its request context. QuillErrors are logged with
// their type, code and cause; server side failures at error level, client
// side ones at warn level.
func LogError(logger *zap.Logger, err error, requestID string) {
	var qe *QuillError
	if !As(err, &qe) {
		logger.Error("unexpected error",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		return
	}

	fields := []zap.Field{
		zap.String("error_type", string(qe.Type)),
		zap.String("message", qe.Message),
		zap.Int("code", qe.Code),
		zap.String("request_id", requestID),
	}
	if qe.Details != nil {
		fields = append(fields, zap.Any("details", qe.Details))
	}
	if qe.err != nil {
		fields = append(fields, zap.NamedError("cause", qe.err))
	}

	if qe.Code >= http.StatusInternalServerError {
		logger.Error("request error", fields...)
	} else {
		logger.Warn("request error", fields...)
	}
}
