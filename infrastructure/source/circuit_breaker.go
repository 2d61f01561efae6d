package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-aipi/internal/ports"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a fetch
// without contacting the source.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState is the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed lets every fetch through.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects fetches until the cooldown expires.
	StateOpen

	// StateHalfOpen lets a probe through to test recovery.
	StateHalfOpen
)

// String returns the lowercase state name used as a metric label.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after maxFailures consecutive failures and probes
// the source again once the cooldown has elapsed.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        CircuitBreakerState
	failureCount int
	maxFailures  int
	cooldown     time.Duration
	lastFailure  time.Time
	now          func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. maxFailures below one
// is treated as one.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:       StateClosed,
		maxFailures: max(maxFailures, 1),
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Call runs fn unless the circuit is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
	}

	err := fn()
	if err == nil {
		cb.failureCount = 0
		cb.state = StateClosed
		return nil
	}

	cb.failureCount++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

type circuitBreakerSource struct {
	next      ports.Source
	cb        *CircuitBreaker
	collector ports.MetricsCollector
}

// CircuitBreakerMiddleware stops calling the source after maxFailures
// consecutive failures until cooldown has passed.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return CircuitBreakerMiddlewareWithMetrics(maxFailures, cooldown, nil)
}

// CircuitBreakerMiddlewareWithMetrics is CircuitBreakerMiddleware that also
// reports the breaker state as the source_circuit_state gauge.
func CircuitBreakerMiddlewareWithMetrics(maxFailures int, cooldown time.Duration, collector ports.MetricsCollector) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next ports.Source) ports.Source {
		return &circuitBreakerSource{next: next, cb: cb, collector: collector}
	}
}

func (c *circuitBreakerSource) Fetch(ctx context.Context, knownVersion string) (ports.Payload, error) {
	var payload ports.Payload
	err := c.cb.Call(func() error {
		var err error
		payload, err = c.next.Fetch(ctx, knownVersion)
		return err
	})
	if c.collector != nil {
		c.collector.RecordGauge("source_circuit_state", float64(c.cb.State()),
			map[string]string{"location": c.next.Location()})
	}
	return payload, err
}

func (c *circuitBreakerSource) Location() string { return c.next.Location() }
