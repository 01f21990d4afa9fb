package throttle

import (
	"testing"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

func TestCallLogBounded(t *testing.T) {
	l := NewCallLog(3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		l.Append(domain.CallEntry{
			Vendor:    domain.VendorHunter,
			Cost:      float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	if l.Len() != 3 {
		t.Fatalf("Expected 3 retained entries, got %d", l.Len())
	}

	entries := l.ByVendor(domain.VendorHunter, 10)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	// The oldest two were dropped.
	if entries[0].Cost != 2 {
		t.Errorf("Expected oldest retained cost 2, got %f", entries[0].Cost)
	}
}

func TestCallLogByVendorFilters(t *testing.T) {
	l := NewCallLog(10)
	now := time.Now()

	l.Append(domain.CallEntry{Vendor: domain.VendorHunter, Timestamp: now})
	l.Append(domain.CallEntry{Vendor: domain.VendorApollo, Timestamp: now})
	l.Append(domain.CallEntry{Vendor: domain.VendorHunter, Timestamp: now})

	if got := len(l.ByVendor(domain.VendorHunter, 10)); got != 2 {
		t.Errorf("Expected 2 hunter entries, got %d", got)
	}
	if got := len(l.ByVendor(domain.VendorApollo, 10)); got != 1 {
		t.Errorf("Expected 1 apollo entry, got %d", got)
	}
}

func TestCallLogSince(t *testing.T) {
	l := NewCallLog(10)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		l.Append(domain.CallEntry{
			Vendor:    domain.VendorHunter,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got := l.Since(base.Add(3 * time.Minute))
	if len(got) != 2 {
		t.Errorf("Expected 2 entries since cutoff, got %d", len(got))
	}
}
