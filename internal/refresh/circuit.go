package refresh

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CircuitState is the breaker's position.
type CircuitState int

const (
	// StateClosed: upstream healthy, calls flow normally.
	StateClosed CircuitState = iota
	// StateOpen: too many consecutive failures, calls are blocked until the
	// cool-down elapses.
	StateOpen
	// StateHalfOpen: cool-down elapsed, exactly one probe is in flight.
	StateHalfOpen
)

func (s CircuitState) String() string {
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

// CircuitBreaker counts consecutive upstream failures and blocks refresh
// attempts once the threshold is reached. After the cool-down window it lets
// exactly one probe through; the probe's outcome closes or re-opens the
// circuit.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
	}
}

// Allow reports whether a refresh attempt may proceed. In the open state it
// transitions to half-open once the cool-down has elapsed, admitting a single
// probe; further calls are blocked until the probe settles.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.cooldown {
			cb.state = StateHalfOpen
			log.Info().
				Str("component", "circuit_breaker").
				Msg("cool-down elapsed, allowing probe refresh")
			return true
		}
		return false
	case StateHalfOpen:
		return false
	default:
		return false
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateClosed {
		log.Info().
			Str("component", "circuit_breaker").
			Str("from", cb.state.String()).
			Msg("circuit closed")
	}
	cb.state = StateClosed
	cb.failures = 0
}

// RecordFailure increments the consecutive-failure count, opening the
// circuit at the threshold. A failed half-open probe re-opens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	if cb.state == StateHalfOpen || (cb.state == StateClosed && cb.failures >= cb.threshold) {
		cb.state = StateOpen
		cb.openedAt = time.Now()
		log.Warn().
			Str("component", "circuit_breaker").
			Int("consecutive_failures", cb.failures).
			Dur("cooldown", cb.cooldown).
			Msg("circuit opened")
	}
}

// Reset closes the circuit and zeroes the failure count, regardless of
// state. Used by forced refreshes.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
}

// State returns the current breaker position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive-failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// RemainingCooldown returns how long until an open circuit admits a probe,
// or zero when not open.
func (cb *CircuitBreaker) RemainingCooldown() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return 0
	}
	remaining := cb.cooldown - time.Since(cb.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
