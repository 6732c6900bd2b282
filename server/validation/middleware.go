// Package validation decodes and checks transformation request bodies before
// they reach the processing pipeline.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/teilomillet/quill/config"
	"github.com/teilomillet/quill/errors"
	"github.com/teilomillet/quill/prompt"
)

// maxBodyBytes bounds the size of a request body.
const maxBodyBytes = 1 << 20

type ctxKey struct{}

// ValidationErrorDetail describes one rejected field.
type ValidationErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Value   string `json:"value,omitempty"`
}

// Validator checks request bodies against the field rules, the per-task
// required parameters and the input token budget.
type Validator struct {
	validate  *validator.Validate
	counter   *TokenCounter
	maxTokens int
}

// New creates a Validator from the transform configuration. The tiktoken
// encoding is loaded only when a token budget is set; if it can not be
// loaded, counts fall back to an estimate and a warning is logged.
func New(cfg config.TransformConfig, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Validator{validate: newValidate(), maxTokens: cfg.MaxInputTokens}
	if cfg.MaxInputTokens > 0 {
		counter, err := NewTokenCounter(cfg.Encoding)
		if err != nil {
			logger.Warn("token encoding unavailable, using estimate",
				zap.String("encoding", cfg.Encoding),
				zap.Error(err),
			)
		}
		v.counter = counter
	}
	return v
}

// NewWithCounter creates a Validator with an explicit token counter.
func NewWithCounter(counter *TokenCounter, maxTokens int) *Validator {
	return &Validator{validate: newValidate(), counter: counter, maxTokens: maxTokens}
}

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Parse decodes the body of r and checks it for task.
func (v *Validator) Parse(r *http.Request, task prompt.Task, requestID string) (*TransformRequest, *errors.QuillError) {
	ct := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
		return nil, fail(requestID, "Invalid or missing Content-Type header", http.StatusBadRequest, ValidationErrorDetail{
			Field:   "header:Content-Type",
			Message: "Content-Type must be application/json",
			Code:    "invalid_content_type",
			Value:   ct,
		})
	}

	var req TransformRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return nil, fail(requestID, "Invalid request format", http.StatusBadRequest, ValidationErrorDetail{
			Field:   "body",
			Message: err.Error(),
			Code:    "invalid_json",
		})
	}

	if qe := v.Check(&req, task, requestID); qe != nil {
		return nil, qe
	}
	return &req, nil
}

// Check runs the field rules, the required parameters of task and the token
// budget against req.
func (v *Validator) Check(req *TransformRequest, task prompt.Task, requestID string) *errors.QuillError {
	if strings.TrimSpace(req.Text) == "" {
		return fail(requestID, "Text is required", http.StatusBadRequest, ValidationErrorDetail{
			Field:   "text",
			Message: "field 'text' is required",
			Code:    "required",
		})
	}
	for _, name := range requiredParams[task] {
		if strings.TrimSpace(req.param(name)) == "" {
			return fail(requestID, fmt.Sprintf("%s is required", name), http.StatusBadRequest, ValidationErrorDetail{
				Field:   name,
				Message: fmt.Sprintf("field '%s' is required for %s", name, task),
				Code:    "required",
			})
		}
	}

	if err := v.validate.Struct(req); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fail(requestID, "Request validation failed", http.StatusUnprocessableEntity, ValidationErrorDetail{
				Field: "body", Message: err.Error(), Code: "invalid",
			})
		}
		details := make([]ValidationErrorDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, ValidationErrorDetail{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Code:    fe.Tag() + "_validation_failed",
				Value:   fmt.Sprintf("%v", fe.Value()),
			})
		}
		return fail(requestID, "Request validation failed", http.StatusUnprocessableEntity, details...)
	}

	if v.counter != nil {
		if err := v.counter.ValidateTokens(req.Text, v.maxTokens); err != nil {
			return fail(requestID, "Token limit exceeded", http.StatusUnprocessableEntity, ValidationErrorDetail{
				Field:   "text",
				Message: err.Error(),
				Code:    "token_limit_exceeded",
				Value:   fmt.Sprintf("%d", v.maxTokens),
			})
		}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		if fe.Field() == "hinglishIntensity" {
			return "hinglishIntensity must be between 0 and 4"
		}
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	case "required", "notblank":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	}
	return fmt.Sprintf("validation failed: %s", fe.Error())
}

func fail(requestID, message string, code int, details ...ValidationErrorDetail) *errors.QuillError {
	qe := errors.NewValidationError(requestID, message, map[string]interface{}{"errors": details})
	qe.Code = code
	return qe
}

// Middleware decodes and checks the body for task. Valid requests continue
// with the decoded body in the context; see FromContext.
func (v *Validator) Middleware(task prompt.Task) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, qe := v.Parse(r, task, w.Header().Get("X-Request-ID"))
			if qe != nil {
				errors.WriteError(w, qe)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, req)))
		})
	}
}

// FromContext returns the body stored by Middleware.
func FromContext(ctx context.Context) (*TransformRequest, bool) {
	req, ok := ctx.Value(ctxKey{}).(*TransformRequest)
	return req, ok
}
