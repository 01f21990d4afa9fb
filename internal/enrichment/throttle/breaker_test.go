package throttle

import (
	"testing"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	b := newBreaker(3, time.Minute)
	now := time.Now()

	b.recordFailure(now)
	b.recordFailure(now)

	if b.currentState(now) != domain.CircuitClosed {
		t.Errorf("Expected closed below threshold, got %s", b.currentState(now))
	}
	if !b.allow(now) {
		t.Error("Expected calls allowed below threshold")
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := newBreaker(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		b.recordFailure(now)
	}

	if b.currentState(now) != domain.CircuitOpen {
		t.Errorf("Expected open at threshold, got %s", b.currentState(now))
	}
	if b.allow(now) {
		t.Error("Expected calls blocked while open")
	}
	if got := b.resetAfter(now); got != time.Minute {
		t.Errorf("Expected reset after 1m, got %v", got)
	}
}

func TestBreakerHalfOpenAfterReset(t *testing.T) {
	b := newBreaker(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		b.recordFailure(now)
	}

	later := now.Add(time.Minute)
	if b.currentState(later) != domain.CircuitHalfOpen {
		t.Errorf("Expected half-open after reset interval, got %s", b.currentState(later))
	}
	if !b.allow(later) {
		t.Error("Expected probe allowed in half-open")
	}
}

func TestBreakerProbeSuccessCloses(t *testing.T) {
	b := newBreaker(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		b.recordFailure(now)
	}
	later := now.Add(time.Minute)
	b.recordSuccess(later)

	if b.currentState(later) != domain.CircuitClosed {
		t.Errorf("Expected closed after probe success, got %s", b.currentState(later))
	}
	if b.consecutiveFailures != 0 {
		t.Errorf("Expected failure count reset, got %d", b.consecutiveFailures)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := newBreaker(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		b.recordFailure(now)
	}
	later := now.Add(time.Minute)
	b.recordFailure(later)

	if b.currentState(later) != domain.CircuitOpen {
		t.Errorf("Expected reopened after probe failure, got %s", b.currentState(later))
	}
	// The reset interval restarts from the probe failure.
	if got := b.resetAfter(later); got != time.Minute {
		t.Errorf("Expected full reset wait, got %v", got)
	}
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	b := newBreaker(3, time.Minute)
	now := time.Now()

	b.recordFailure(now)
	b.recordFailure(now)
	b.recordSuccess(now)
	b.recordFailure(now)
	b.recordFailure(now)

	if b.currentState(now) != domain.CircuitClosed {
		t.Error("Expected closed, failures were not consecutive")
	}
}
