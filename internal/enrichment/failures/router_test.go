package failures

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/throttle"
	"github.com/leadgrid/gatekeeper/internal/infra/storage/memory"
)

func testRouter() *Router {
	return NewRouter(memory.NewBayRepo(memory.NewStore()), nil)
}

func TestRouteCompanyFuzzy(t *testing.T) {
	r := testRouter()
	ctx := context.Background()

	res, err := r.RouteCompanyFuzzy(ctx, CompanyFuzzyFailure{
		RowID:       "row-1",
		CompanyName: "Acme Incorporated",
		BestMatch:   "Acme Inc",
		Score:       0.62,
		Threshold:   0.85,
	})
	if err != nil {
		t.Fatalf("RouteCompanyFuzzy failed: %v", err)
	}
	if res.Bay != domain.BayCompanyFuzzy {
		t.Errorf("Expected company fuzzy bay, got %s", res.Bay)
	}

	rec, err := r.Get(ctx, res.Bay, res.RecordID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Status != domain.RecordRouted {
		t.Errorf("Expected routed status, got %s", rec.Status)
	}
	if !strings.Contains(rec.Reason, "Acme Incorporated") {
		t.Errorf("Expected reason to name the company, got %q", rec.Reason)
	}
	if rec.Evidence["score"] != 0.62 {
		t.Errorf("Expected score evidence, got %v", rec.Evidence["score"])
	}
}

func TestRouteRejectsIncompletePayload(t *testing.T) {
	r := testRouter()
	ctx := context.Background()

	if _, err := r.RouteCompanyFuzzy(ctx, CompanyFuzzyFailure{RowID: "row-1"}); err == nil {
		t.Error("Expected error for missing company name")
	}
	if _, err := r.RouteEmailPattern(ctx, EmailPatternFailure{Domain: "acme.com"}); err == nil {
		t.Error("Expected error for missing row id")
	}
	if _, err := r.RouteSlotDiscovery(ctx, SlotDiscoveryFailure{RowID: "row-1", CompanyName: "Acme"}); err == nil {
		t.Error("Expected error for missing slot")
	}

	if r.Statistics().TotalFailures != 0 {
		t.Error("Expected rejected payloads not counted")
	}
}

func TestEachBayReceivesItsCategory(t *testing.T) {
	r := testRouter()
	ctx := context.Background()

	cases := []struct {
		bay   domain.Bay
		route func() (RouteResult, error)
	}{
		{domain.BayCompanyFuzzy, func() (RouteResult, error) {
			return r.RouteCompanyFuzzy(ctx, CompanyFuzzyFailure{RowID: "r", CompanyName: "Acme"})
		}},
		{domain.BayPersonCompanyMismatch, func() (RouteResult, error) {
			return r.RoutePersonCompanyMismatch(ctx, PersonCompanyMismatch{RowID: "r", PersonName: "Ann"})
		}},
		{domain.BayEmailPattern, func() (RouteResult, error) {
			return r.RouteEmailPattern(ctx, EmailPatternFailure{RowID: "r", Domain: "acme.com"})
		}},
		{domain.BayEmailGeneration, func() (RouteResult, error) {
			return r.RouteEmailGeneration(ctx, EmailGenerationFailure{RowID: "r", PersonName: "Ann"})
		}},
		{domain.BayLinkedInResolution, func() (RouteResult, error) {
			return r.RouteLinkedInResolution(ctx, LinkedInResolutionFailure{RowID: "r", PersonName: "Ann"})
		}},
		{domain.BaySlotDiscovery, func() (RouteResult, error) {
			return r.RouteSlotDiscovery(ctx, SlotDiscoveryFailure{RowID: "r", Slot: "CFO"})
		}},
		{domain.BayDOLSync, func() (RouteResult, error) {
			return r.RouteDOLSync(ctx, DOLSyncFailure{RowID: "r", CompanyName: "Acme"})
		}},
		{domain.BayAgentFailures, func() (RouteResult, error) {
			return r.RouteAgentFailure(ctx, AgentFailure{RowID: "r", Agent: domain.AgentOutreachSync, Detail: "timeout"})
		}},
	}

	for _, c := range cases {
		res, err := c.route()
		if err != nil {
			t.Fatalf("Route to %s failed: %v", c.bay, err)
		}
		if res.Bay != c.bay {
			t.Errorf("Expected bay %s, got %s", c.bay, res.Bay)
		}
	}

	stats := r.Statistics()
	if stats.TotalFailures != len(cases) {
		t.Errorf("Expected %d total failures, got %d", len(cases), stats.TotalFailures)
	}
	if stats.PendingRepairs != len(cases) {
		t.Errorf("Expected %d pending repairs, got %d", len(cases), stats.PendingRepairs)
	}
	for _, c := range cases {
		if stats.ByBay[c.bay] != 1 {
			t.Errorf("Expected 1 failure in %s, got %d", c.bay, stats.ByBay[c.bay])
		}
	}
}

func TestAutoRouteKnownAgent(t *testing.T) {
	r := testRouter()

	res, err := r.AutoRoute(context.Background(), domain.AgentLinkedInResolution, "row-9",
		errors.New("profile not found"))
	if err != nil {
		t.Fatalf("AutoRoute failed: %v", err)
	}
	if res.Bay != domain.BayLinkedInResolution {
		t.Errorf("Expected linkedin bay, got %s", res.Bay)
	}
}

func TestAutoRouteUnknownAgentHitsCatchAll(t *testing.T) {
	r := testRouter()

	res, err := r.AutoRoute(context.Background(), "FutureAgent", "row-9", errors.New("boom"))
	if err != nil {
		t.Fatalf("AutoRoute failed: %v", err)
	}
	if res.Bay != domain.BayAgentFailures {
		t.Errorf("Expected catch-all bay, got %s", res.Bay)
	}
}

func TestAutoRouteThrottleError(t *testing.T) {
	r := testRouter()

	res, err := r.AutoRoute(context.Background(), domain.AgentPattern, "row-9", &throttle.RateLimitError{
		Vendor:     domain.VendorHunter,
		Window:     throttle.WindowMinute,
		Limit:      10,
		Current:    10,
		RetryAfter: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("AutoRoute failed: %v", err)
	}
	if res.Bay != domain.BayAgentFailures {
		t.Errorf("Expected throttle errors in agent_failures, got %s", res.Bay)
	}

	stats := r.ThrottleStatistics()
	if stats[domain.VendorHunter].RateLimited != 1 {
		t.Errorf("Expected rate limit tallied, got %+v", stats[domain.VendorHunter])
	}
}

func TestRouteThrottleErrorTallies(t *testing.T) {
	r := testRouter()
	ctx := context.Background()

	r.RouteThrottleError(ctx, "r1", &throttle.RateLimitError{Vendor: domain.VendorHunter})
	r.RouteThrottleError(ctx, "r2", &throttle.RateLimitError{Vendor: domain.VendorHunter})
	r.RouteThrottleError(ctx, "r3", &throttle.CostLimitError{Vendor: domain.VendorProxycurl})
	r.RouteThrottleError(ctx, "r4", &throttle.CircuitBreakerError{Vendor: domain.VendorOpenAI})
	r.RouteThrottleError(ctx, "r5", &throttle.BudgetExceededError{Scope: "company", CompanyID: "acme"})

	stats := r.ThrottleStatistics()
	if stats[domain.VendorHunter].RateLimited != 2 {
		t.Errorf("Expected 2 rate limited for hunter, got %d", stats[domain.VendorHunter].RateLimited)
	}
	if stats[domain.VendorProxycurl].CostLimited != 1 {
		t.Errorf("Expected 1 cost limited for proxycurl, got %d", stats[domain.VendorProxycurl].CostLimited)
	}
	if stats[domain.VendorOpenAI].CircuitOpen != 1 {
		t.Errorf("Expected 1 circuit open for openai, got %d", stats[domain.VendorOpenAI].CircuitOpen)
	}
	if stats[domain.VendorInternal].BudgetExceeded != 1 {
		t.Errorf("Expected 1 budget exceeded, got %d", stats[domain.VendorInternal].BudgetExceeded)
	}
}

func TestMarkRepairedLifecycle(t *testing.T) {
	r := testRouter()
	ctx := context.Background()

	res, _ := r.RouteEmailPattern(ctx, EmailPatternFailure{RowID: "row-1", Domain: "acme.com"})

	if !r.MarkRepaired(ctx, res.Bay, res.RecordID, "pattern added by hand") {
		t.Fatal("Expected repair to succeed")
	}

	rec, _ := r.Get(ctx, res.Bay, res.RecordID)
	if rec.Status != domain.RecordRepaired {
		t.Errorf("Expected repaired status, got %s", rec.Status)
	}
	if rec.RepairNotes != "pattern added by hand" {
		t.Errorf("Expected notes kept, got %q", rec.RepairNotes)
	}

	// Terminal records cannot transition again.
	if r.MarkRepaired(ctx, res.Bay, res.RecordID, "again") {
		t.Error("Expected repeated repair rejected")
	}
	if r.MarkResolved(ctx, res.Bay, res.RecordID, "close") {
		t.Error("Expected resolve after repair rejected")
	}

	stats := r.Statistics()
	if stats.Repaired != 1 || stats.PendingRepairs != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestMarkRepairedMissingRecord(t *testing.T) {
	r := testRouter()

	if r.MarkRepaired(context.Background(), domain.BayEmailPattern, "no-such-id", "note") {
		t.Error("Expected repair of missing record to return false")
	}
}

func TestMarkResolvedClosesWithoutRerun(t *testing.T) {
	r := testRouter()
	ctx := context.Background()

	res, _ := r.RouteDOLSync(ctx, DOLSyncFailure{RowID: "row-1", CompanyName: "Acme"})
	if !r.MarkResolved(ctx, res.Bay, res.RecordID, "filings unavailable for this EIN") {
		t.Fatal("Expected resolve to succeed")
	}

	rec, _ := r.Get(ctx, res.Bay, res.RecordID)
	if rec.Status != domain.RecordResolved {
		t.Errorf("Expected resolved status, got %s", rec.Status)
	}

	stats := r.Statistics()
	if stats.Resolved != 1 {
		t.Errorf("Expected 1 resolved, got %d", stats.Resolved)
	}
}

func TestGenerateReportListsAllBays(t *testing.T) {
	r := testRouter()
	ctx := context.Background()

	r.RouteCompanyFuzzy(ctx, CompanyFuzzyFailure{RowID: "r", CompanyName: "Acme"})
	r.RouteThrottleError(ctx, "r", &throttle.RateLimitError{Vendor: domain.VendorHunter})

	report := r.GenerateReport(ctx)
	for _, bay := range domain.AllBays {
		if !strings.Contains(report, string(bay)) {
			t.Errorf("Expected report to mention %s", bay)
		}
	}
	if !strings.Contains(report, "hunter") {
		t.Error("Expected throttle section to mention the vendor")
	}
}
