// Package resilience guards the location store backends with circuit
// breakers and keeps a registry of their health for the status endpoint.
// Nothing here retries: a failed search is answered from the fallback dataset.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the circuit breaker for logging/metrics.
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state.
	// Default: 1
	MaxRequests uint32

	// Interval is the cyclic period for clearing internal counts when closed.
	// Default: 0 (disabled)
	Interval time.Duration

	// Timeout is the period of open state before switching to half-open.
	// Default: 60 seconds
	Timeout time.Duration

	// ReadyToTrip determines when to trip the circuit breaker.
	// If nil, uses DefaultReadyToTrip (50% failure rate with 5+ requests).
	ReadyToTrip func(counts gobreaker.Counts) bool

	// IsSuccessful decides whether an error counts against the breaker.
	// If nil, uses DefaultIsSuccessful.
	IsSuccessful func(err error) bool

	// OnStateChange is called when the circuit breaker state changes.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns a sensible default configuration.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     0,
		Timeout:      60 * time.Second,
		ReadyToTrip:  DefaultReadyToTrip,
		IsSuccessful: DefaultIsSuccessful,
	}
}

// DefaultReadyToTrip trips the circuit breaker when at least 5 requests have been made
// and the failure rate is 50% or higher.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && failureRatio >= 0.5
}

// DefaultIsSuccessful does not count caller cancellation as a store failure.
func DefaultIsSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
	}

	if cfg.IsSuccessful != nil {
		settings.IsSuccessful = cfg.IsSuccessful
	} else {
		settings.IsSuccessful = DefaultIsSuccessful
	}

	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}

// ErrCircuitOpen is returned instead of calling a backend whose breaker is
// open or whose half-open trial slots are taken.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerError maps gobreaker's rejection errors to ErrCircuitOpen and
// returns any other error unchanged.
func BreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// Breaker guards calls to a backend that is not reached over HTTP, such as a
// database pool. Results are reported to the registry when one is set.
type Breaker[T any] struct {
	name         string
	cb           *gobreaker.CircuitBreaker[T]
	isSuccessful func(err error) bool
	registry     *Registry
}

// NewBreaker creates a Breaker and registers it under cfg.Name.
func NewBreaker[T any](cfg CircuitBreakerConfig, registry *Registry) *Breaker[T] {
	isSuccessful := cfg.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = DefaultIsSuccessful
	}
	b := &Breaker[T]{
		name:         cfg.Name,
		cb:           NewCircuitBreaker[T](cfg),
		isSuccessful: isSuccessful,
		registry:     registry,
	}
	if registry != nil {
		registry.Register(cfg.Name, b)
	}
	return b
}

// Name returns the breaker's name.
func (b *Breaker[T]) Name() string {
	return b.name
}

// Execute runs fn unless the breaker is open, in which case it returns
// ErrCircuitOpen without calling fn.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	err = BreakerError(err)
	// Cancellation is neither a success nor a failure of the backend.
	if b.registry != nil && (err == nil || !b.isSuccessful(err)) {
		b.registry.Record(b.name, err)
	}
	return result, err
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (b *Breaker[T]) CircuitBreakerState() gobreaker.State {
	return b.cb.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (b *Breaker[T]) CircuitBreakerCounts() gobreaker.Counts {
	return b.cb.Counts()
}
