package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerReporter exposes circuit breaker state for health reporting.
// Client and Breaker both implement it.
type BreakerReporter interface {
	CircuitBreakerState() gobreaker.State
	CircuitBreakerCounts() gobreaker.Counts
}

// Condition summarizes a backend's breaker state for the status endpoint.
type Condition int

const (
	// ConditionUp means the breaker is closed.
	ConditionUp Condition = iota
	// ConditionProbing means the breaker is half-open and letting trial calls through.
	ConditionProbing
	// ConditionDown means the breaker is open and calls go straight to the fallback.
	ConditionDown
)

// BackendHealth is a point-in-time view of one location store backend.
type BackendHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Condition maps the circuit state onto Up, Probing or Down.
func (h *BackendHealth) Condition() Condition {
	switch h.CircuitState {
	case gobreaker.StateClosed:
		return ConditionUp
	case gobreaker.StateHalfOpen:
		return ConditionProbing
	default:
		return ConditionDown
	}
}

// Registry records the outcome of store calls per backend. Backends
// register once, at construction, and report every call.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*backend
	now      func() time.Time
}

type backend struct {
	reporter      BreakerReporter
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]*backend),
		now:      time.Now,
	}
}

// Register adds a backend. Registering a name twice replaces the reporter
// and clears its history.
func (r *Registry) Register(name string, reporter BreakerReporter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = &backend{reporter: reporter}
}

// Record stores the outcome of one call. A nil err is a success.
// Unknown names are ignored.
func (r *Registry) Record(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.backends[name]
	if !ok {
		return
	}
	now := r.now()
	if err == nil {
		b.lastSuccessAt = &now
		return
	}
	b.lastFailureAt = &now
	b.lastError = err.Error()
}

// GetHealth returns the health of one backend, or nil if it is not registered.
func (r *Registry) GetHealth(name string) *BackendHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[name]
	if !ok {
		return nil
	}
	return b.health(name)
}

// GetAllHealth returns the health of every backend, ordered by name.
func (r *Registry) GetAllHealth() []*BackendHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*BackendHealth, 0, len(r.backends))
	for name, b := range r.backends {
		all = append(all, b.health(name))
	}
	slices.SortFunc(all, func(a, b *BackendHealth) int {
		return strings.Compare(a.Name, b.Name)
	})
	return all
}

func (b *backend) health(name string) *BackendHealth {
	return &BackendHealth{
		Name:          name,
		CircuitState:  b.reporter.CircuitBreakerState(),
		Counts:        b.reporter.CircuitBreakerCounts(),
		LastSuccessAt: b.lastSuccessAt,
		LastFailureAt: b.lastFailureAt,
		LastError:     b.lastError,
	}
}
