package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/teilomillet/quill/config"
	"github.com/teilomillet/quill/server/circuitbreaker"
)

// Backend is a named Completer registered with a Manager.
type Backend struct {
	Name      string
	Completer Completer
}

type entry struct {
	name      string
	completer Completer
	breaker   *circuitbreaker.CircuitBreaker
}

// Manager handles backend selection, circuit breaking and health monitoring.
// A call goes to the first backend in preference order whose breaker is not
// open and that did not fail its health checks. It is attempted exactly once.
type Manager struct {
	entries      []*entry
	healthStates sync.Map // map[string]HealthStatus
	logger       *zap.Logger
	cfg          *config.Config
	metrics      *managerMetrics
}

// Verify at compile time that Manager is itself a Completer
var _ Completer = (*Manager)(nil)

// NewManager creates the backends configured in cfg. Without a providers
// section the legacy llm section defines a single gollm backend. In test mode
// no backend is created.
func NewManager(cfg *config.Config, logger *zap.Logger, registry prometheus.Registerer) (*Manager, error) {
	if cfg.TestMode {
		return NewManagerWithBackends(cfg, logger, registry, nil), nil
	}

	httpClient := &http.Client{}
	var backends []Backend
	for _, name := range providerOrder(cfg) {
		pc := providerConfig(cfg, name)
		c, err := New(pc, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize provider %s: %w", name, err)
		}
		backends = append(backends, Backend{Name: name, Completer: c})
		logger.Info("provider initialized",
			zap.String("provider", name),
			zap.String("backend", backendName(pc.Backend)),
			zap.String("model", pc.Model),
		)
	}
	return NewManagerWithBackends(cfg, logger, registry, backends), nil
}

// NewManagerWithBackends creates a manager over pre-built backends, kept in
// the given order.
func NewManagerWithBackends(cfg *config.Config, logger *zap.Logger, registry prometheus.Registerer, backends []Backend) *Manager {
	m := &Manager{
		logger:  logger,
		cfg:     cfg,
		metrics: newManagerMetrics(registry),
	}

	collectors := circuitbreaker.NewCollectors(registry)
	cbConfig := circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		Interval:         cfg.CircuitBreaker.Interval,
		ResetTimeout:     cfg.CircuitBreaker.Timeout,
		HalfOpenRequests: cfg.CircuitBreaker.MaxRequests,
	}

	for _, b := range backends {
		m.entries = append(m.entries, &entry{
			name:      b.Name,
			completer: b.Completer,
			breaker: circuitbreaker.NewCircuitBreaker(
				b.Name,
				cbConfig,
				logger.With(zap.String("provider", b.Name)),
				collectors,
			),
		})
	}
	return m
}

// providerOrder lists the provider names: the preference list first, then the
// remaining providers by name.
func providerOrder(cfg *config.Config) []string {
	if len(cfg.Providers) == 0 {
		if cfg.LLM.Provider == "" {
			return nil
		}
		return []string{cfg.LLM.Provider}
	}

	seen := make(map[string]bool, len(cfg.Providers))
	order := make([]string, 0, len(cfg.Providers))
	for _, name := range cfg.ProviderPreference {
		if _, ok := cfg.Providers[name]; ok && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	var rest []string
	for name := range cfg.Providers {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func providerConfig(cfg *config.Config, name string) config.ProviderConfig {
	if pc, ok := cfg.Providers[name]; ok {
		if pc.Timeout == 0 {
			pc.Timeout = cfg.LLM.Timeout
		}
		return pc
	}
	return config.ProviderConfig{
		Type:     cfg.LLM.Provider,
		Backend:  config.BackendGollm,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		Endpoint: cfg.LLM.Endpoint,
		Timeout:  cfg.LLM.Timeout,
		Options:  cfg.LLM.Options,
	}
}

func backendName(b string) string {
	if b == "" {
		return config.BackendGollm
	}
	return b
}

// Names returns the backend names in preference order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.name
	}
	return names
}

func (m *Manager) selectEntry() (*entry, error) {
	for _, e := range m.entries {
		if e.breaker.IsOpen() {
			continue
		}
		if status, ok := m.getProviderStatus(e.name); ok && !status.Healthy {
			continue
		}
		return e, nil
	}
	return nil, ErrNoProvider
}

// Complete sends prompt to the selected backend.
func (m *Manager) Complete(ctx context.Context, prompt string) (string, error) {
	e, err := m.selectEntry()
	if err != nil {
		return "", err
	}

	var out string
	start := time.Now()
	err = e.breaker.Execute(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var callErr error
		out, callErr = e.completer.Complete(ctx, prompt)
		return callErr
	})
	duration := time.Since(start)

	outcome := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	m.metrics.requestLatency.WithLabelValues(e.name, outcome).Observe(duration.Seconds())

	if err != nil {
		counts := e.breaker.Counts()
		m.logger.Warn("completion failed",
			zap.String("provider", e.name),
			zap.Error(err),
			zap.Duration("duration", duration),
			zap.String("breaker_state", e.breaker.State().String()),
			zap.Uint32("consecutive_failures", counts.ConsecutiveFailures),
		)
		return "", fmt.Errorf("provider %s: %w", e.name, err)
	}

	m.logger.Debug("completion succeeded",
		zap.String("provider", e.name),
		zap.Duration("duration", duration),
	)
	return out, nil
}

// ProviderState is the health view of one backend.
type ProviderState struct {
	Name    string        `json:"name"`
	Breaker string        `json:"circuit_breaker"`
	Health  *HealthStatus `json:"health,omitempty"`
}

// States reports breaker and health state of every backend in preference order.
func (m *Manager) States() []ProviderState {
	states := make([]ProviderState, 0, len(m.entries))
	for _, e := range m.entries {
		s := ProviderState{Name: e.name, Breaker: e.breaker.State().String()}
		if status, ok := m.getProviderStatus(e.name); ok {
			s.Health = &status
		}
		states = append(states, s)
	}
	return states
}

// Available reports whether some backend can currently take a call.
func (m *Manager) Available() bool {
	_, err := m.selectEntry()
	return err == nil
}
