package budget

import (
	"strings"
	"testing"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

func testAccountant(limits domain.BudgetLimits) (*Accountant, *time.Time) {
	a := NewAccountant(Config{Defaults: limits})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) // a Tuesday
	a.now = func() time.Time { return now }
	return a, &now
}

func TestDailyBudgetExceeded(t *testing.T) {
	a, _ := testAccountant(domain.BudgetLimits{Daily: 10.0})

	a.RecordSpend("acme", domain.VendorProxycurl, 9.5)

	d := a.CanSpend("acme", domain.VendorProxycurl, 1.0)
	if d.Allowed {
		t.Fatal("Expected daily budget denial")
	}
	if !strings.Contains(d.Reason, "Daily budget exceeded for acme") {
		t.Errorf("Unexpected reason: %s", d.Reason)
	}

	// A spend that fits is still allowed.
	if d := a.CanSpend("acme", domain.VendorProxycurl, 0.5); !d.Allowed {
		t.Errorf("Expected spend within budget allowed: %s", d.Reason)
	}
}

func TestWeeklyBudgetExceeded(t *testing.T) {
	a, _ := testAccountant(domain.BudgetLimits{Daily: 100.0, Weekly: 50.0})

	a.RecordSpend("acme", domain.VendorOpenAI, 49.0)

	d := a.CanSpend("acme", domain.VendorOpenAI, 2.0)
	if d.Allowed {
		t.Fatal("Expected weekly budget denial")
	}
	if !strings.Contains(d.Reason, "Weekly budget exceeded") {
		t.Errorf("Unexpected reason: %s", d.Reason)
	}
}

func TestZeroLimitIsUnlimited(t *testing.T) {
	a, _ := testAccountant(domain.BudgetLimits{})

	a.RecordSpend("acme", domain.VendorOpenAI, 100000)
	if d := a.CanSpend("acme", domain.VendorOpenAI, 100000); !d.Allowed {
		t.Errorf("Expected unlimited spend with zero limits: %s", d.Reason)
	}
}

func TestDailyWindowRollsOver(t *testing.T) {
	a, now := testAccountant(domain.BudgetLimits{Daily: 10.0})

	a.RecordSpend("acme", domain.VendorProxycurl, 10.0)
	if d := a.CanSpend("acme", domain.VendorProxycurl, 0.01); d.Allowed {
		t.Fatal("Expected budget exhausted")
	}

	*now = now.AddDate(0, 0, 1)
	if d := a.CanSpend("acme", domain.VendorProxycurl, 5.0); !d.Allowed {
		t.Errorf("Expected fresh daily budget next day: %s", d.Reason)
	}

	snap := a.Snapshot("acme")
	if snap.SpentDay != 0 {
		t.Errorf("Expected daily spend reset, got %f", snap.SpentDay)
	}
}

func TestWeeklySurvivesDayRollover(t *testing.T) {
	a, now := testAccountant(domain.BudgetLimits{Daily: 100.0, Weekly: 50.0})

	a.RecordSpend("acme", domain.VendorOpenAI, 30.0)
	*now = now.AddDate(0, 0, 1) // Wednesday, same week

	snap := a.Snapshot("acme")
	if snap.SpentDay != 0 {
		t.Errorf("Expected daily spend reset, got %f", snap.SpentDay)
	}
	if snap.SpentWeek != 30.0 {
		t.Errorf("Expected weekly spend kept, got %f", snap.SpentWeek)
	}

	// The following Monday clears the week.
	*now = time.Date(2026, 3, 16, 0, 0, 1, 0, time.UTC)
	if snap := a.Snapshot("acme"); snap.SpentWeek != 0 {
		t.Errorf("Expected weekly spend reset on Monday, got %f", snap.SpentWeek)
	}
}

func TestCompanyOverrideLimits(t *testing.T) {
	a := NewAccountant(Config{
		Defaults: domain.BudgetLimits{Daily: 10.0},
		Companies: map[string]domain.BudgetLimits{
			"bigspender": {Daily: 100.0},
		},
	})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	a.RecordSpend("bigspender", domain.VendorProxycurl, 50.0)
	if d := a.CanSpend("bigspender", domain.VendorProxycurl, 10.0); !d.Allowed {
		t.Errorf("Expected override limit to apply: %s", d.Reason)
	}

	a.RecordSpend("regular", domain.VendorProxycurl, 9.0)
	if d := a.CanSpend("regular", domain.VendorProxycurl, 2.0); d.Allowed {
		t.Error("Expected default limit to apply to other companies")
	}
}

func TestRestoreSeedsCounters(t *testing.T) {
	a, now := testAccountant(domain.BudgetLimits{Daily: 10.0})

	a.Restore(domain.CompanyBudget{
		CompanyID: "acme",
		SpentDay:  8.0,
		DayStart:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	})

	if d := a.CanSpend("acme", domain.VendorProxycurl, 3.0); d.Allowed {
		t.Error("Expected restored spend to count against budget")
	}

	// A stale snapshot from yesterday is discarded on roll.
	a.Restore(domain.CompanyBudget{
		CompanyID: "globex",
		SpentDay:  8.0,
		DayStart:  now.AddDate(0, 0, -1),
	})
	if d := a.CanSpend("globex", domain.VendorProxycurl, 5.0); !d.Allowed {
		t.Errorf("Expected stale snapshot discarded: %s", d.Reason)
	}
}

func TestSnapshotsCoverAllCompanies(t *testing.T) {
	a, _ := testAccountant(domain.BudgetLimits{Daily: 10.0})

	a.RecordSpend("acme", domain.VendorProxycurl, 1.0)
	a.RecordSpend("globex", domain.VendorProxycurl, 2.0)

	snaps := a.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
}
