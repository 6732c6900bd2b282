// Package circuitbreaker guards completion backends with a gobreaker circuit
// breaker and exports its state as Prometheus metrics.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds configuration for the circuit breaker
type Config struct {
	FailureThreshold uint32        // Consecutive failures before the circuit opens
	Interval         time.Duration // Closed state period after which counts are cleared
	ResetTimeout     time.Duration // Time in the open state before trying half-open
	HalfOpenRequests uint32        // Requests allowed through while half-open
}

// CircuitBreaker wraps gobreaker with logging and metrics.
type CircuitBreaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger

	stateGauge    prometheus.Gauge
	failuresCount prometheus.Counter
	tripsTotal    prometheus.Counter
}

// Collectors are the metric vectors shared by all breakers of a registry.
type Collectors struct {
	State    *prometheus.GaugeVec
	Failures *prometheus.CounterVec
	Trips    *prometheus.CounterVec
}

// NewCollectors creates the breaker metric vectors and registers them with
// registry, when non-nil.
func NewCollectors(registry prometheus.Registerer) *Collectors {
	c := &Collectors{
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quill_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_circuit_breaker_failures_total",
			Help: "Total number of failures recorded by the circuit breaker",
		}, []string{"name"}),
		Trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_circuit_breaker_trips_total",
			Help: "Total number of times the circuit breaker has tripped",
		}, []string{"name"}),
	}
	if registry != nil {
		registry.MustRegister(c.State, c.Failures, c.Trips)
	}
	return c
}

// NewCircuitBreaker creates a breaker named name. A nil collectors records
// into unregistered vectors.
func NewCircuitBreaker(name string, config Config, logger *zap.Logger, collectors *Collectors) *CircuitBreaker {
	if collectors == nil {
		collectors = NewCollectors(nil)
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}

	b := &CircuitBreaker{
		name:          name,
		logger:        logger,
		stateGauge:    collectors.State.WithLabelValues(name),
		failuresCount: collectors.Failures.WithLabelValues(name),
		tripsTotal:    collectors.Trips.WithLabelValues(name),
	}
	b.stateGauge.Set(float64(gobreaker.StateClosed))

	threshold := config.FailureThreshold
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.HalfOpenRequests,
		Interval:    config.Interval,
		Timeout:     config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: b.onStateChange,
	})
	return b
}

// onStateChange runs under the gobreaker lock and must not call back into b.cb.
func (b *CircuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	b.stateGauge.Set(float64(to))
	if to == gobreaker.StateOpen {
		b.tripsTotal.Inc()
		b.logger.Warn("circuit breaker tripped",
			zap.String("name", name),
			zap.String("from", from.String()),
		)
		return
	}
	b.logger.Info("circuit breaker state changed",
		zap.String("name", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}

// Execute runs f if the breaker allows it. A rejected call returns
// ErrCircuitOpen without invoking f.
func (b *CircuitBreaker) Execute(f func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, f()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	if err != nil {
		b.failuresCount.Inc()
	}
	return err
}

// Name returns the breaker name.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

// Counts returns the request counts of the current generation.
func (b *CircuitBreaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// IsOpen reports whether calls are currently being rejected outright.
func (b *CircuitBreaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}
