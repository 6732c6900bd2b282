package provider

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const healthCheckPrompt = "Respond with 'ok' for health check."

// RunHealthChecks probes every backend at the configured interval until ctx
// is done. It returns immediately when health checks are disabled.
func (m *Manager) RunHealthChecks(ctx context.Context) {
	hc := m.cfg.HealthCheck
	if !hc.Enabled || len(m.entries) == 0 {
		return
	}

	m.CheckAll(ctx)

	ticker := time.NewTicker(hc.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll probes every backend once.
func (m *Manager) CheckAll(ctx context.Context) {
	for _, e := range m.entries {
		status := m.checkProviderHealth(ctx, e)
		m.UpdateHealthStatus(e.name, status)
	}
}

// checkProviderHealth sends the probe prompt directly to the backend. Probes
// bypass the circuit breaker so they never count as traffic.
func (m *Manager) checkProviderHealth(ctx context.Context, e *entry) HealthStatus {
	status := m.GetHealthStatus(e.name)

	timeout := m.cfg.HealthCheck.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	_, err := e.completer.Complete(ctx, healthCheckPrompt)
	status.Latency = time.Since(start)
	status.LastCheck = time.Now()
	status.CheckCount++
	m.metrics.healthCheckDuration.Observe(status.Latency.Seconds())

	if err != nil {
		status.ConsecutiveFails++
		status.ErrorCount++
		m.metrics.healthCheckErrors.WithLabelValues(e.name).Inc()
		m.logger.Warn("provider health check failed",
			zap.String("provider", e.name),
			zap.Error(err),
			zap.Duration("latency", status.Latency),
			zap.Int("consecutive_fails", status.ConsecutiveFails),
		)
	} else {
		status.ConsecutiveFails = 0
	}

	threshold := m.cfg.HealthCheck.FailureThreshold
	if threshold <= 0 {
		threshold = 1
	}
	status.Healthy = status.ConsecutiveFails < threshold
	return status
}

// GetHealthStatus returns the health status for a provider
func (m *Manager) GetHealthStatus(name string) HealthStatus {
	status, _ := m.getProviderStatus(name)
	return status
}

func (m *Manager) getProviderStatus(name string) (HealthStatus, bool) {
	if val, ok := m.healthStates.Load(name); ok {
		return val.(HealthStatus), true
	}
	return HealthStatus{}, false
}

// UpdateHealthStatus updates the health status for a provider
func (m *Manager) UpdateHealthStatus(name string, status HealthStatus) {
	m.healthStates.Store(name, status)
	if status.Healthy {
		m.metrics.healthyProviders.WithLabelValues(name).Set(1)
	} else {
		m.metrics.healthyProviders.WithLabelValues(name).Set(0)
	}
}
