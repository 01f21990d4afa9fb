package failures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/metrics"
	"github.com/leadgrid/gatekeeper/internal/enrichment/throttle"
	"github.com/leadgrid/gatekeeper/internal/infra/storage"
)

// RouteResult identifies where a failure was filed.
type RouteResult struct {
	Bay      domain.Bay `json:"bay"`
	RecordID string     `json:"record_id"`
}

// Stats aggregates routing counters for this process.
type Stats struct {
	TotalFailures  int                `json:"total_failures"`
	ByBay          map[domain.Bay]int `json:"by_bay"`
	PendingRepairs int                `json:"pending_repairs"`
	Repaired       int                `json:"repaired"`
	Resolved       int                `json:"resolved"`
}

// ThrottleStats tallies throttle denials per vendor.
type ThrottleStats struct {
	RateLimited    int `json:"rate_limited"`
	CostLimited    int `json:"cost_limited"`
	BudgetExceeded int `json:"budget_exceeded"`
	CircuitOpen    int `json:"circuit_open"`
}

// Router validates category-specific failure payloads, persists them into
// the matching bay, and tracks repair state.
type Router struct {
	mu    sync.Mutex
	store storage.BayRepository
	log   *slog.Logger

	totalFailures  int
	byBay          map[domain.Bay]int
	pendingRepairs int
	repaired       int
	resolved       int
	throttleStats  map[domain.VendorID]*ThrottleStats
}

// NewRouter creates a router over the given bay store.
func NewRouter(store storage.BayRepository, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		store:         store,
		log:           log.With("component", "failure_router"),
		byBay:         make(map[domain.Bay]int),
		throttleStats: make(map[domain.VendorID]*ThrottleStats),
	}
}

// RouteCompanyFuzzy files a company fuzzy-match failure.
func (r *Router) RouteCompanyFuzzy(ctx context.Context, f CompanyFuzzyFailure) (RouteResult, error) {
	if f.RowID == "" || f.CompanyName == "" {
		return RouteResult{}, fmt.Errorf("company fuzzy failure requires row id and company name")
	}
	return r.file(ctx, domain.BayCompanyFuzzy, f.RowID, domain.AgentCompanyFuzzyMatch, f.reason(), f)
}

// RoutePersonCompanyMismatch files a person/company identity mismatch.
func (r *Router) RoutePersonCompanyMismatch(ctx context.Context, f PersonCompanyMismatch) (RouteResult, error) {
	if f.RowID == "" || f.PersonName == "" {
		return RouteResult{}, fmt.Errorf("person-company mismatch requires row id and person name")
	}
	return r.file(ctx, domain.BayPersonCompanyMismatch, f.RowID, domain.AgentPersonMatch, f.reason(), f)
}

// RouteEmailPattern files an email pattern discovery failure.
func (r *Router) RouteEmailPattern(ctx context.Context, f EmailPatternFailure) (RouteResult, error) {
	if f.RowID == "" || f.Domain == "" {
		return RouteResult{}, fmt.Errorf("email pattern failure requires row id and domain")
	}
	return r.file(ctx, domain.BayEmailPattern, f.RowID, domain.AgentPattern, f.reason(), f)
}

// RouteEmailGeneration files an email generation failure.
func (r *Router) RouteEmailGeneration(ctx context.Context, f EmailGenerationFailure) (RouteResult, error) {
	if f.RowID == "" || f.PersonName == "" {
		return RouteResult{}, fmt.Errorf("email generation failure requires row id and person name")
	}
	return r.file(ctx, domain.BayEmailGeneration, f.RowID, domain.AgentEmailGenerator, f.reason(), f)
}

// RouteLinkedInResolution files a profile resolution failure.
func (r *Router) RouteLinkedInResolution(ctx context.Context, f LinkedInResolutionFailure) (RouteResult, error) {
	if f.RowID == "" || f.PersonName == "" {
		return RouteResult{}, fmt.Errorf("linkedin resolution failure requires row id and person name")
	}
	return r.file(ctx, domain.BayLinkedInResolution, f.RowID, domain.AgentLinkedInResolution, f.reason(), f)
}

// RouteSlotDiscovery files a slot discovery failure.
func (r *Router) RouteSlotDiscovery(ctx context.Context, f SlotDiscoveryFailure) (RouteResult, error) {
	if f.RowID == "" || f.Slot == "" {
		return RouteResult{}, fmt.Errorf("slot discovery failure requires row id and slot")
	}
	return r.file(ctx, domain.BaySlotDiscovery, f.RowID, domain.AgentSlotDiscovery, f.reason(), f)
}

// RouteDOLSync files a DOL filing sync failure.
func (r *Router) RouteDOLSync(ctx context.Context, f DOLSyncFailure) (RouteResult, error) {
	if f.RowID == "" {
		return RouteResult{}, fmt.Errorf("dol sync failure requires row id")
	}
	return r.file(ctx, domain.BayDOLSync, f.RowID, domain.AgentDOLSync, f.reason(), f)
}

// RouteAgentFailure files an unclassified agent failure into the catch-all
// bay.
func (r *Router) RouteAgentFailure(ctx context.Context, f AgentFailure) (RouteResult, error) {
	if f.RowID == "" || f.Agent == "" {
		return RouteResult{}, fmt.Errorf("agent failure requires row id and agent")
	}
	return r.file(ctx, domain.BayAgentFailures, f.RowID, f.Agent, f.reason(), f)
}

// AutoRoute maps an agent name to its owning bay and files the failure
// there. Unknown agents default to the agent_failures catch-all.
func (r *Router) AutoRoute(ctx context.Context, agent domain.AgentName, rowID string, failure error) (RouteResult, error) {
	var terr throttle.Error
	if errors.As(failure, &terr) {
		return r.RouteThrottleError(ctx, rowID, terr)
	}

	bay := BayForAgent(agent)
	payload := AgentFailure{RowID: rowID, Agent: agent, Detail: failure.Error()}
	return r.file(ctx, bay, rowID, agent, payload.reason(), payload)
}

// RouteThrottleError classifies a throttle error into the agent_failures
// bay while tallying per-vendor throttle statistics.
func (r *Router) RouteThrottleError(ctx context.Context, rowID string, terr throttle.Error) (RouteResult, error) {
	r.mu.Lock()
	switch e := terr.(type) {
	case *throttle.RateLimitError:
		r.throttleStatsFor(e.Vendor).RateLimited++
	case *throttle.CostLimitError:
		r.throttleStatsFor(e.Vendor).CostLimited++
	case *throttle.BudgetExceededError:
		r.throttleStatsFor(domain.VendorInternal).BudgetExceeded++
	case *throttle.CircuitBreakerError:
		r.throttleStatsFor(e.Vendor).CircuitOpen++
	}
	r.mu.Unlock()

	payload := AgentFailure{RowID: rowID, Agent: "throttle", Detail: terr.Error()}
	return r.file(ctx, domain.BayAgentFailures, rowID, "throttle", terr.Error(), payload)
}

// MarkRepaired transitions a record to repaired and records the note.
// Returns false, without error, when the record is missing or already
// terminal, so batch repair tooling can continue past absent ids.
func (r *Router) MarkRepaired(ctx context.Context, bay domain.Bay, recordID, note string) bool {
	rec, err := r.store.Get(ctx, bay, recordID)
	if err != nil {
		if !errors.Is(err, storage.ErrRecordNotFound) {
			r.log.Warn("failed to load record for repair", "bay", bay, "record_id", recordID, "error", err)
		}
		return false
	}
	if rec.Status.Terminal() {
		return false
	}

	rec.Status = domain.RecordRepaired
	rec.RepairNotes = note
	rec.UpdatedAt = time.Now()
	if err := r.store.Update(ctx, rec); err != nil {
		r.log.Error("failed to persist repair", "bay", bay, "record_id", recordID, "error", err)
		return false
	}

	r.mu.Lock()
	r.pendingRepairs--
	r.repaired++
	r.mu.Unlock()

	metrics.RepairsTotal.WithLabelValues(string(bay)).Inc()
	return true
}

// MarkResolved transitions a record to resolved (closed without a rerun).
// Same return contract as MarkRepaired.
func (r *Router) MarkResolved(ctx context.Context, bay domain.Bay, recordID, note string) bool {
	rec, err := r.store.Get(ctx, bay, recordID)
	if err != nil {
		return false
	}
	if rec.Status.Terminal() {
		return false
	}

	rec.Status = domain.RecordResolved
	rec.RepairNotes = note
	rec.UpdatedAt = time.Now()
	if err := r.store.Update(ctx, rec); err != nil {
		r.log.Error("failed to persist resolution", "bay", bay, "record_id", recordID, "error", err)
		return false
	}

	r.mu.Lock()
	r.pendingRepairs--
	r.resolved++
	r.mu.Unlock()
	return true
}

// Get retrieves a record from its bay.
func (r *Router) Get(ctx context.Context, bay domain.Bay, recordID string) (*domain.FailureRecord, error) {
	return r.store.Get(ctx, bay, recordID)
}

// Update persists a record's mutable fields.
func (r *Router) Update(ctx context.Context, rec *domain.FailureRecord) error {
	return r.store.Update(ctx, rec)
}

// List retrieves all records in a bay, oldest first.
func (r *Router) List(ctx context.Context, bay domain.Bay) ([]*domain.FailureRecord, error) {
	return r.store.List(ctx, bay)
}

// CountUnresolved counts non-terminal records in a bay.
func (r *Router) CountUnresolved(ctx context.Context, bay domain.Bay) (int, error) {
	return r.store.CountUnresolved(ctx, bay)
}

// Statistics returns aggregate routing counters.
func (r *Router) Statistics() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	byBay := make(map[domain.Bay]int, len(r.byBay))
	for bay, n := range r.byBay {
		byBay[bay] = n
	}
	return Stats{
		TotalFailures:  r.totalFailures,
		ByBay:          byBay,
		PendingRepairs: r.pendingRepairs,
		Repaired:       r.repaired,
		Resolved:       r.resolved,
	}
}

// ThrottleStatistics returns per-vendor throttle denial tallies.
func (r *Router) ThrottleStatistics() map[domain.VendorID]ThrottleStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[domain.VendorID]ThrottleStats, len(r.throttleStats))
	for vendor, s := range r.throttleStats {
		out[vendor] = *s
	}
	return out
}

// GenerateReport renders a human-readable summary of routed failures.
func (r *Router) GenerateReport(ctx context.Context) string {
	stats := r.Statistics()

	var b strings.Builder
	fmt.Fprintf(&b, "Failure report\n")
	fmt.Fprintf(&b, "  total routed:    %d\n", stats.TotalFailures)
	fmt.Fprintf(&b, "  pending repairs: %d\n", stats.PendingRepairs)
	fmt.Fprintf(&b, "  repaired:        %d\n", stats.Repaired)
	fmt.Fprintf(&b, "  resolved:        %d\n", stats.Resolved)
	fmt.Fprintf(&b, "By bay:\n")
	for _, bay := range domain.AllBays {
		unresolved, err := r.store.CountUnresolved(ctx, bay)
		if err != nil {
			fmt.Fprintf(&b, "  %-30s routed %3d, unresolved n/a (%v)\n", bay, stats.ByBay[bay], err)
			continue
		}
		fmt.Fprintf(&b, "  %-30s routed %3d, unresolved %3d\n", bay, stats.ByBay[bay], unresolved)
	}

	throttleStats := r.ThrottleStatistics()
	if len(throttleStats) > 0 {
		fmt.Fprintf(&b, "Throttle denials:\n")
		for vendor, s := range throttleStats {
			fmt.Fprintf(&b, "  %-12s rate %d, cost %d, budget %d, circuit %d\n",
				vendor, s.RateLimited, s.CostLimited, s.BudgetExceeded, s.CircuitOpen)
		}
	}
	return b.String()
}

// file persists a validated failure into its bay under a fresh record id.
func (r *Router) file(ctx context.Context, bay domain.Bay, rowID string, agent domain.AgentName, reason string, payload any) (RouteResult, error) {
	now := time.Now()
	rec := &domain.FailureRecord{
		ID:          uuid.New().String(),
		Bay:         bay,
		SourceRowID: rowID,
		Agent:       agent,
		Reason:      reason,
		Evidence:    toEvidence(payload),
		Status:      domain.RecordRouted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.Add(ctx, rec); err != nil {
		return RouteResult{}, fmt.Errorf("failed to persist failure record: %w", err)
	}

	r.mu.Lock()
	r.totalFailures++
	r.byBay[bay]++
	r.pendingRepairs++
	r.mu.Unlock()

	metrics.FailuresRouted.WithLabelValues(string(bay)).Inc()
	r.log.Info("routed failure", "bay", bay, "record_id", rec.ID, "row_id", rowID, "reason", reason)

	return RouteResult{Bay: bay, RecordID: rec.ID}, nil
}

func (r *Router) throttleStatsFor(vendor domain.VendorID) *ThrottleStats {
	s, ok := r.throttleStats[vendor]
	if !ok {
		s = &ThrottleStats{}
		r.throttleStats[vendor] = s
	}
	return s
}

// toEvidence flattens a typed payload into the record's evidence map.
func toEvidence(payload any) map[string]any {
	data, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{"payload": fmt.Sprintf("%+v", payload)}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"payload": string(data)}
	}
	return m
}
