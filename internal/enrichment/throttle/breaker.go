package throttle

import (
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// breaker is a per-vendor circuit breaker driven by consecutive failures.
//
// Transitions: closed -> open after threshold consecutive failures,
// open -> half-open once the reset interval has elapsed (computed lazily,
// no timer), half-open -> closed on success, half-open -> open on failure.
type breaker struct {
	threshold int
	reset     time.Duration

	state               domain.CircuitState
	consecutiveFailures int
	openedAt            time.Time
}

func newBreaker(threshold int, reset time.Duration) breaker {
	return breaker{
		threshold: threshold,
		reset:     reset,
		state:     domain.CircuitClosed,
	}
}

// currentState returns the effective state at now, promoting open to
// half-open once the reset interval has elapsed.
func (b *breaker) currentState(now time.Time) domain.CircuitState {
	if b.state == domain.CircuitOpen && now.Sub(b.openedAt) >= b.reset {
		return domain.CircuitHalfOpen
	}
	return b.state
}

// allow reports whether a call may pass at now.
func (b *breaker) allow(now time.Time) bool {
	return b.currentState(now) != domain.CircuitOpen
}

// resetAfter returns the remaining time before the breaker leaves open.
func (b *breaker) resetAfter(now time.Time) time.Duration {
	if b.currentState(now) != domain.CircuitOpen {
		return 0
	}
	return b.openedAt.Add(b.reset).Sub(now)
}

func (b *breaker) recordFailure(now time.Time) {
	b.consecutiveFailures++

	switch b.currentState(now) {
	case domain.CircuitHalfOpen:
		// Probe failed, back to a full reset wait.
		b.state = domain.CircuitOpen
		b.openedAt = now
	case domain.CircuitClosed:
		if b.consecutiveFailures >= b.threshold {
			b.state = domain.CircuitOpen
			b.openedAt = now
		}
	}
}

func (b *breaker) recordSuccess(now time.Time) {
	b.consecutiveFailures = 0
	if b.currentState(now) == domain.CircuitHalfOpen {
		b.state = domain.CircuitClosed
	}
}
