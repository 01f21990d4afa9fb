package throttle

import (
	"sync"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// CallLog is a bounded in-memory append-only history of consumed calls.
// When full, the oldest entries are dropped.
type CallLog struct {
	mu      sync.RWMutex
	entries []domain.CallEntry
	max     int
}

// NewCallLog creates a call log holding at most max entries.
func NewCallLog(max int) *CallLog {
	if max <= 0 {
		max = 1000
	}
	return &CallLog{
		entries: make([]domain.CallEntry, 0, max),
		max:     max,
	}
}

// Append records one call.
func (l *CallLog) Append(e domain.CallEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// ByVendor returns the most recent entries for a vendor, newest last.
func (l *CallLog) ByVendor(vendor domain.VendorID, limit int) []domain.CallEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.CallEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].Vendor == vendor {
			out = append(out, l.entries[i])
		}
	}
	// Reverse back to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Since returns all entries at or after t, oldest first.
func (l *CallLog) Since(t time.Time) []domain.CallEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.CallEntry
	for _, e := range l.entries {
		if !e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of retained entries.
func (l *CallLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
