// Package provider implements the completion backends and the manager that
// selects one of them per request.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/teilomillet/quill/config"
)

// Completer sends one prompt to a language model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// HealthStatus represents the current health state of a provider
type HealthStatus struct {
	Healthy          bool          `json:"healthy"`
	LastCheck        time.Time     `json:"last_check"`
	ConsecutiveFails int           `json:"consecutive_fails"`
	Latency          time.Duration `json:"latency"`
	ErrorCount       int64         `json:"error_count"`
	CheckCount       int64         `json:"check_count"`
}

// New builds the backend described by cfg. httpClient is used by backends that
// talk HTTP directly; nil selects http.DefaultClient.
func New(cfg config.ProviderConfig, httpClient *http.Client) (Completer, error) {
	switch cfg.Backend {
	case "", config.BackendGollm:
		return NewGollm(cfg)
	case config.BackendOllamaNative:
		return NewOllama(cfg, httpClient)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
