// Package breaker implements the per-endpoint circuit breaker required by
// the RPC substrate (spec.md §4.1, §8 property 6): CLOSED -> OPEN after 5
// consecutive failures, OPEN fails fast for 60s, then HALF_OPEN admits one
// probe.
package breaker

import (
	"sync"
	"time"
)

// State is one of the three breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

const (
	failureThreshold = 5
	openDuration     = 60 * time.Second
)

// Breaker tracks failure/success counts for a single remote endpoint.
// Safe for concurrent use by multiple call sites targeting the same
// endpoint (spec.md §4.1: "Breaker state is shared by all call sites
// targeting the same endpoint").
type Breaker struct {
	mu               sync.Mutex
	state            State
	consecutiveFails int
	openedAt         time.Time
	probeInFlight    bool
}

// New creates a breaker in the CLOSED state.
func New() *Breaker {
	return &Breaker{state: Closed}
}

// Allow reports whether a call may proceed. When the breaker is OPEN past
// openDuration, or HALF_OPEN with no probe in flight, a true result
// reserves the single probe slot for this caller.
func (b *Breaker) Allow(now time.Time) (allowed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if now.Sub(b.openedAt) >= openDuration {
			b.state = HalfOpen
			b.probeInFlight = true
			return true
		}
		return false
	case HalfOpen:
		// Only one probe admitted at a time; concurrent callers fail fast
		// until the probe resolves.
		if !b.probeInFlight {
			b.probeInFlight = true
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess resets the breaker to CLOSED.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.consecutiveFails = 0
	b.probeInFlight = false
}

// RecordFailure increments the failure count and trips the breaker to OPEN
// once the threshold is reached, or immediately re-opens it if the failure
// was the HALF_OPEN probe.
func (b *Breaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.state = Open
		b.openedAt = now
		b.probeInFlight = false
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= failureThreshold {
		b.state = Open
		b.openedAt = now
		b.probeInFlight = false
	}
}

// CurrentState returns the current breaker state (for tests/diagnostics).
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Registry hands out one Breaker per endpoint, creating it on first use.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty breaker registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*Breaker)}
}

// For returns the breaker for endpoint, creating one if it doesn't exist.
func (r *Registry) For(endpoint string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[endpoint]
	if !ok {
		b = New()
		r.breakers[endpoint] = b
	}
	return b
}
