package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/failures"
	"github.com/leadgrid/gatekeeper/internal/enrichment/throttle"
	"github.com/leadgrid/gatekeeper/internal/infra/storage/memory"
)

type stubAgent struct {
	name domain.AgentName
	out  map[string]any
	err  error
	runs int
}

func (a *stubAgent) Name() domain.AgentName { return a.name }

func (a *stubAgent) Run(ctx context.Context, in Input) (map[string]any, error) {
	a.runs++
	return a.out, a.err
}

func testRunner(t *testing.T, rules map[domain.VendorID]domain.ThrottleRule, table AgentTable) (*Runner, *failures.Router) {
	t.Helper()

	gate := throttle.NewGate(throttle.Config{
		Rules:            rules,
		BreakerThreshold: 3,
		BreakerReset:     time.Minute,
	}, nil)

	store := memory.NewStore()
	router := failures.NewRouter(memory.NewBayRepo(store), nil)
	graph := NewGraph(testConfig())

	return NewRunner(graph, gate, router, table, memory.NewCallLogRepo(store), nil), router
}

func TestRunAgentHappyPath(t *testing.T) {
	table := AgentTable{
		Vendors: map[domain.AgentName]domain.VendorID{domain.AgentPattern: domain.VendorHunter},
		Costs:   map[domain.AgentName]float64{domain.AgentPattern: 0.01},
	}
	r, _ := testRunner(t, map[domain.VendorID]domain.ThrottleRule{
		domain.VendorHunter: {MaxCallsPerMinute: 10},
	}, table)

	agent := &stubAgent{name: domain.AgentPattern, out: map[string]any{"pattern": "{first}.{last}"}}
	r.Register(agent)

	in := Input{RowID: "row-1", CompanyID: "acme"}
	completed := []domain.AgentName{domain.AgentCompanyFuzzyMatch}

	res, err := r.RunAgent(context.Background(), domain.NodeCompanyHub, domain.AgentPattern, in, completed)
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if !res.Ran {
		t.Fatal("Expected agent to run")
	}
	if res.Output["pattern"] != "{first}.{last}" {
		t.Errorf("Unexpected output: %v", res.Output)
	}
	if agent.runs != 1 {
		t.Errorf("Expected 1 run, got %d", agent.runs)
	}
}

func TestRunAgentUnmetDependencies(t *testing.T) {
	r, _ := testRunner(t, nil, AgentTable{})
	r.Register(&stubAgent{name: domain.AgentEmailGenerator})

	_, err := r.RunAgent(context.Background(), domain.NodeCompanyHub, domain.AgentEmailGenerator,
		Input{RowID: "row-1"}, nil)
	if err == nil {
		t.Fatal("Expected dependency error")
	}
	if !strings.Contains(err.Error(), "unmet dependencies") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRunAgentDependenciesCheckedBeforeGate(t *testing.T) {
	// Vendor is fully throttled, but the dependency error must win.
	table := AgentTable{
		Vendors: map[domain.AgentName]domain.VendorID{domain.AgentEmailGenerator: domain.VendorOpenAI},
	}
	r, _ := testRunner(t, map[domain.VendorID]domain.ThrottleRule{
		domain.VendorOpenAI: {MaxCallsPerMinute: 0, MaxCallsPerDay: 0},
	}, table)

	agent := &stubAgent{name: domain.AgentEmailGenerator}
	r.Register(agent)

	_, err := r.RunAgent(context.Background(), domain.NodeCompanyHub, domain.AgentEmailGenerator,
		Input{RowID: "row-1"}, nil)
	if err == nil || !strings.Contains(err.Error(), "unmet dependencies") {
		t.Errorf("Expected dependency error before any gate check, got %v", err)
	}
	if agent.runs != 0 {
		t.Error("Expected agent not to run")
	}
}

func TestRunAgentGateDenialRoutes(t *testing.T) {
	table := AgentTable{
		Vendors: map[domain.AgentName]domain.VendorID{domain.AgentPattern: domain.VendorHunter},
	}
	r, router := testRunner(t, map[domain.VendorID]domain.ThrottleRule{
		domain.VendorHunter: {MaxCallsPerMinute: 1},
	}, table)

	agent := &stubAgent{name: domain.AgentPattern}
	r.Register(agent)

	in := Input{RowID: "row-1"}
	completed := []domain.AgentName{domain.AgentCompanyFuzzyMatch}

	if _, err := r.RunAgent(context.Background(), domain.NodeCompanyHub, domain.AgentPattern, in, completed); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	res, err := r.RunAgent(context.Background(), domain.NodeCompanyHub, domain.AgentPattern, in, completed)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !res.Denied {
		t.Fatal("Expected gate denial")
	}
	if res.Routed == nil {
		t.Fatal("Expected denial routed to a bay")
	}
	if res.Routed.Bay != domain.BayAgentFailures {
		t.Errorf("Expected agent_failures bay, got %s", res.Routed.Bay)
	}
	if agent.runs != 1 {
		t.Errorf("Expected denied call not to reach the agent, got %d runs", agent.runs)
	}

	stats := router.ThrottleStatistics()
	if stats[domain.VendorHunter].RateLimited != 1 {
		t.Errorf("Expected 1 rate-limited tally, got %d", stats[domain.VendorHunter].RateLimited)
	}
}

func TestRunAgentFailureRoutedAndBreakerFed(t *testing.T) {
	table := AgentTable{
		Vendors: map[domain.AgentName]domain.VendorID{domain.AgentPattern: domain.VendorHunter},
	}
	r, router := testRunner(t, map[domain.VendorID]domain.ThrottleRule{
		domain.VendorHunter: {},
	}, table)

	agent := &stubAgent{name: domain.AgentPattern, err: errors.New("no mx records")}
	r.Register(agent)

	in := Input{RowID: "row-1"}
	completed := []domain.AgentName{domain.AgentCompanyFuzzyMatch}

	res, err := r.RunAgent(context.Background(), domain.NodeCompanyHub, domain.AgentPattern, in, completed)
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if res.Ran {
		t.Error("Expected Ran false on agent error")
	}
	if res.Routed == nil {
		t.Fatal("Expected failure routed")
	}
	if res.Routed.Bay != domain.BayEmailPattern {
		t.Errorf("Expected pattern bay, got %s", res.Routed.Bay)
	}

	rec, ferr := router.Get(context.Background(), res.Routed.Bay, res.Routed.RecordID)
	if ferr != nil {
		t.Fatalf("Expected record persisted: %v", ferr)
	}
	if rec.SourceRowID != "row-1" {
		t.Errorf("Expected source row kept, got %s", rec.SourceRowID)
	}
}

func TestRunAgentInternalVendorSkipsGate(t *testing.T) {
	// No throttle rule exists for the internal pseudo-vendor; an agent
	// with no vendor mapping must still run.
	r, _ := testRunner(t, nil, AgentTable{})

	agent := &stubAgent{name: domain.AgentCompanyFuzzyMatch, out: map[string]any{"match": "acme inc"}}
	r.Register(agent)

	res, err := r.RunAgent(context.Background(), domain.NodeCompanyHub, domain.AgentCompanyFuzzyMatch,
		Input{RowID: "row-1"}, nil)
	if err != nil {
		t.Fatalf("RunAgent failed: %v", err)
	}
	if !res.Ran {
		t.Error("Expected internal agent to run without a gate rule")
	}
}

func TestRunNextPicksRunnableAgent(t *testing.T) {
	r, _ := testRunner(t, nil, AgentTable{})

	fuzzy := &stubAgent{name: domain.AgentCompanyFuzzyMatch}
	r.Register(fuzzy)

	res, err := r.RunNext(context.Background(), domain.NodeCompanyHub, Input{RowID: "row-1"}, nil)
	if err != nil {
		t.Fatalf("RunNext failed: %v", err)
	}
	if res.Agent != domain.AgentCompanyFuzzyMatch {
		t.Errorf("Expected fuzzy match selected, got %s", res.Agent)
	}
	if fuzzy.runs != 1 {
		t.Errorf("Expected 1 run, got %d", fuzzy.runs)
	}
}

func TestRunNextNothingRunnable(t *testing.T) {
	r, _ := testRunner(t, nil, AgentTable{})

	res, err := r.RunNext(context.Background(), domain.NodePeopleHub, Input{RowID: "row-1"}, nil)
	if err != nil {
		t.Fatalf("RunNext failed: %v", err)
	}
	if res.Agent != "" || res.Ran {
		t.Errorf("Expected empty result when nothing is runnable, got %+v", res)
	}
}
