// Package throttle implements per-vendor admission control: rate and cost
// limits over calendar windows, a circuit breaker per vendor, and a manual
// kill switch, composed into a single permit decision.
//
// This package contains:
//   - Gate: the combined check/consume entry point
//   - windowCounter: lazily-reset calendar window counters
//   - breaker: per-vendor failure-streak circuit breaker
//   - CallLog: bounded append-only call history
package throttle

import "time"

// Window identifies a throttle accounting window.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// windowStart returns the calendar-aligned start of the window containing now.
func windowStart(now time.Time, w Window) time.Time {
	switch w {
	case WindowMinute:
		return now.Truncate(time.Minute)
	case WindowHour:
		return now.Truncate(time.Hour)
	case WindowDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	return now
}

// windowEnd returns when the window containing now rolls over.
func windowEnd(now time.Time, w Window) time.Time {
	start := windowStart(now, w)
	switch w {
	case WindowMinute:
		return start.Add(time.Minute)
	case WindowHour:
		return start.Add(time.Hour)
	case WindowDay:
		return start.AddDate(0, 0, 1)
	}
	return now
}

// windowCounter accumulates calls and cost within one calendar window.
// It is reset lazily the first time it is touched after the window has
// elapsed, so no background timers are needed.
type windowCounter struct {
	calls int
	cost  float64
	start time.Time
}

// roll resets the counter if now has crossed into a new window.
func (c *windowCounter) roll(now time.Time, w Window) {
	start := windowStart(now, w)
	if c.start.Before(start) {
		c.calls = 0
		c.cost = 0
		c.start = start
	}
}
