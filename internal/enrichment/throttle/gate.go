package throttle

import (
	"fmt"
	"sync"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/budget"
	"github.com/leadgrid/gatekeeper/internal/enrichment/metrics"
)

// ErrUnknownVendor is returned when a vendor has no configured rule.
// This is a config error, not a throttle denial.
var ErrUnknownVendor = fmt.Errorf("unknown vendor")

// Config holds gate configuration.
type Config struct {
	// Rules maps each vendor to its throttle rule. Vendors not listed
	// here are rejected with ErrUnknownVendor.
	Rules map[domain.VendorID]domain.ThrottleRule `yaml:"rules"`

	// BreakerThreshold is the consecutive-failure count that opens a
	// vendor's circuit.
	BreakerThreshold int `yaml:"breaker_threshold"`

	// BreakerReset is how long an open circuit waits before half-open.
	BreakerReset time.Duration `yaml:"breaker_reset"`

	// HistorySize bounds the in-memory call log.
	HistorySize int `yaml:"history_size"`
}

// Request describes one prospective vendor call.
type Request struct {
	Vendor domain.VendorID
	Agent  domain.AgentName
	Cost   float64

	// Company scopes the request to a company budget. Empty skips the
	// budget check.
	Company string
}

// vendorUsage holds all mutable per-vendor state. One instance per vendor,
// created lazily, lives for the process lifetime.
type vendorUsage struct {
	minute windowCounter
	hour   windowCounter
	day    windowCounter

	breaker  breaker
	disabled bool

	// rateDenies counts consecutive rate-limit rejections and drives the
	// exponential backoff hint. Reset on any consumed call.
	rateDenies int
}

// Diagnostics is a read-only usage snapshot for one vendor.
type Diagnostics struct {
	Vendor              domain.VendorID     `json:"vendor"`
	Disabled            bool                `json:"disabled"`
	Circuit             domain.CircuitState `json:"circuit"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
	CallsMinute         int                 `json:"calls_minute"`
	CallsHour           int                 `json:"calls_hour"`
	CallsDay            int                 `json:"calls_day"`
	CostMinute          float64             `json:"cost_minute"`
	CostHour            float64             `json:"cost_hour"`
	CostDay             float64             `json:"cost_day"`
	RateDenies          int                 `json:"rate_denies"`
	Rule                domain.ThrottleRule `json:"rule"`
}

// Gate composes the rate limiter, cost accountant, circuit breaker and
// manual kill switch into one permit decision per vendor call.
//
// All operations are synchronous and non-blocking. The gate never sleeps;
// RetryAfter values on denials are advisory hints for the caller.
type Gate struct {
	mu      sync.Mutex
	rules   map[domain.VendorID]domain.ThrottleRule
	usage   map[domain.VendorID]*vendorUsage
	history *CallLog
	budgets *budget.Accountant

	breakerThreshold int
	breakerReset     time.Duration

	now func() time.Time
}

// NewGate creates a gate. budgets may be nil to disable company budget
// checks.
func NewGate(cfg Config, budgets *budget.Accountant) *Gate {
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = time.Minute
	}
	return &Gate{
		rules:            cfg.Rules,
		usage:            make(map[domain.VendorID]*vendorUsage),
		history:          NewCallLog(cfg.HistorySize),
		budgets:          budgets,
		breakerThreshold: cfg.BreakerThreshold,
		breakerReset:     cfg.BreakerReset,
		now:              time.Now,
	}
}

// Check evaluates a request without committing usage. Read-only simulation;
// it does not advance the backoff state.
func (g *Gate) Check(req Request) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rule, u, err := g.lookup(req.Vendor)
	if err != nil {
		return Decision{}, err
	}
	return g.evaluate(g.now(), rule, u, req), nil
}

// CheckAndConsume atomically evaluates a request and, if permitted, commits
// the call and its cost to every window. Denied requests consume nothing.
func (g *Gate) CheckAndConsume(req Request) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rule, u, err := g.lookup(req.Vendor)
	if err != nil {
		return Decision{}, err
	}

	now := g.now()
	d := g.evaluate(now, rule, u, req)
	if !d.Permitted {
		switch d.Reason {
		case ReasonRateLimitMinute, ReasonRateLimitHour, ReasonRateLimitDay:
			u.rateDenies++
		}
		metrics.DenialsTotal.WithLabelValues(string(req.Vendor), string(d.Reason)).Inc()
		return d, nil
	}

	g.commit(now, u, req)
	return d, nil
}

// Record commits usage unconditionally, bypassing all checks. Intended for
// backfill and testing.
func (g *Gate) Record(vendor domain.VendorID, agent domain.AgentName, cost float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, u, err := g.lookup(vendor)
	if err != nil {
		return err
	}
	g.commit(g.now(), u, Request{Vendor: vendor, Agent: agent, Cost: cost})
	return nil
}

// ReportFailure records a vendor call failure, driving the circuit breaker.
func (g *Gate) ReportFailure(vendor domain.VendorID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := g.usageFor(vendor)
	u.breaker.recordFailure(g.now())
	g.publishCircuit(vendor, u)
}

// ReportSuccess records a vendor call success, driving the circuit breaker.
func (g *Gate) ReportSuccess(vendor domain.VendorID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := g.usageFor(vendor)
	u.breaker.recordSuccess(g.now())
	g.publishCircuit(vendor, u)
}

// DisableVendor forces denial for a vendor regardless of counters.
func (g *Gate) DisableVendor(vendor domain.VendorID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.usageFor(vendor).disabled = true
}

// EnableVendor lifts a manual disable, restoring normal evaluation.
func (g *Gate) EnableVendor(vendor domain.VendorID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.usageFor(vendor).disabled = false
}

// ResetUsage clears all window counters for a vendor. Breaker and disabled
// state are untouched.
func (g *Gate) ResetUsage(vendor domain.VendorID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := g.usageFor(vendor)
	u.minute = windowCounter{}
	u.hour = windowCounter{}
	u.day = windowCounter{}
	u.rateDenies = 0
}

// Diagnostics returns a usage snapshot for one vendor.
func (g *Gate) Diagnostics(vendor domain.VendorID) (Diagnostics, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rule, u, err := g.lookup(vendor)
	if err != nil {
		return Diagnostics{}, err
	}

	now := g.now()
	u.minute.roll(now, WindowMinute)
	u.hour.roll(now, WindowHour)
	u.day.roll(now, WindowDay)

	return Diagnostics{
		Vendor:              vendor,
		Disabled:            u.disabled,
		Circuit:             u.breaker.currentState(now),
		ConsecutiveFailures: u.breaker.consecutiveFailures,
		CallsMinute:         u.minute.calls,
		CallsHour:           u.hour.calls,
		CallsDay:            u.day.calls,
		CostMinute:          u.minute.cost,
		CostHour:            u.hour.cost,
		CostDay:             u.day.cost,
		RateDenies:          u.rateDenies,
		Rule:                rule,
	}, nil
}

// Vendors returns every configured vendor id.
func (g *Gate) Vendors() []domain.VendorID {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.VendorID, 0, len(g.rules))
	for v := range g.rules {
		out = append(out, v)
	}
	return out
}

// History returns the in-memory call log.
func (g *Gate) History() *CallLog {
	return g.history
}

// evaluate runs the admission checks in order: disabled, breaker, rate
// limits (minute, hour, day), cost limits (minute, hour, day), company
// budget. The first failing check wins.
func (g *Gate) evaluate(now time.Time, rule domain.ThrottleRule, u *vendorUsage, req Request) Decision {
	if u.disabled {
		return deny(ReasonVendorDisabled,
			fmt.Sprintf("vendor %s is manually disabled", req.Vendor), 0, nil)
	}

	if !u.breaker.allow(now) {
		resetAfter := u.breaker.resetAfter(now)
		return deny(ReasonCircuitOpen, "", resetAfter, &CircuitBreakerError{
			Vendor:              req.Vendor,
			Threshold:           u.breaker.threshold,
			ConsecutiveFailures: u.breaker.consecutiveFailures,
			ResetAfter:          resetAfter,
		})
	}

	u.minute.roll(now, WindowMinute)
	u.hour.roll(now, WindowHour)
	u.day.roll(now, WindowDay)

	rateChecks := []struct {
		window  Window
		limit   int
		counter *windowCounter
	}{
		{WindowMinute, rule.MaxCallsPerMinute, &u.minute},
		{WindowHour, rule.MaxCallsPerHour, &u.hour},
		{WindowDay, rule.MaxCallsPerDay, &u.day},
	}
	for _, c := range rateChecks {
		if c.limit > 0 && c.counter.calls+1 > c.limit {
			retryAfter := g.backoffHint(now, rule, u, c.window)
			return deny(rateReason(c.window), "", retryAfter, &RateLimitError{
				Vendor:     req.Vendor,
				Window:     c.window,
				Limit:      c.limit,
				Current:    c.counter.calls,
				RetryAfter: retryAfter,
			})
		}
	}

	costChecks := []struct {
		window  Window
		limit   float64
		counter *windowCounter
	}{
		{WindowMinute, rule.MaxCostPerMinute, &u.minute},
		{WindowHour, rule.MaxCostPerHour, &u.hour},
		{WindowDay, rule.MaxCostPerDay, &u.day},
	}
	for _, c := range costChecks {
		if c.limit > 0 && c.counter.cost+req.Cost > c.limit {
			return deny(costReason(c.window), "", windowEnd(now, c.window).Sub(now), &CostLimitError{
				Vendor:        req.Vendor,
				Window:        c.window,
				Limit:         c.limit,
				Current:       c.counter.cost,
				AttemptedCost: req.Cost,
			})
		}
	}

	if g.budgets != nil && req.Company != "" {
		if bd := g.budgets.CanSpend(req.Company, req.Vendor, req.Cost); !bd.Allowed {
			snap := g.budgets.Snapshot(req.Company)
			return deny(ReasonCompanyBudget, bd.Reason, 0, &BudgetExceededError{
				Scope:     "company",
				CompanyID: req.Company,
				Limit:     snap.Limits.Daily,
				Current:   snap.SpentDay,
			})
		}
	}

	return permit()
}

// backoffHint computes the advisory retry delay for a rate denial. With
// exponential backoff enabled, the hint doubles for each consecutive
// rejection, capped at MaxBackoffMultiplier times the cooldown.
func (g *Gate) backoffHint(now time.Time, rule domain.ThrottleRule, u *vendorUsage, w Window) time.Duration {
	base := rule.Cooldown
	if base <= 0 {
		return windowEnd(now, w).Sub(now)
	}
	if !rule.ExponentialBackoff {
		return base
	}

	hint := base
	for i := 0; i < u.rateDenies; i++ {
		hint *= 2
	}
	if rule.MaxBackoffMultiplier > 0 {
		if max := base * time.Duration(rule.MaxBackoffMultiplier); hint > max {
			hint = max
		}
	}
	return hint
}

// commit writes a permitted call into every window, the call log, the
// budget accountant and metrics. Caller holds g.mu.
func (g *Gate) commit(now time.Time, u *vendorUsage, req Request) {
	u.minute.roll(now, WindowMinute)
	u.hour.roll(now, WindowHour)
	u.day.roll(now, WindowDay)

	u.minute.calls++
	u.hour.calls++
	u.day.calls++
	u.minute.cost += req.Cost
	u.hour.cost += req.Cost
	u.day.cost += req.Cost
	u.rateDenies = 0

	if g.budgets != nil && req.Company != "" {
		g.budgets.RecordSpend(req.Company, req.Vendor, req.Cost)
	}

	g.history.Append(domain.CallEntry{
		Vendor:    req.Vendor,
		Agent:     req.Agent,
		Cost:      req.Cost,
		Timestamp: now,
	})

	metrics.VendorCallsTotal.WithLabelValues(string(req.Vendor), string(req.Agent)).Inc()
	metrics.VendorSpendTotal.WithLabelValues(string(req.Vendor)).Add(req.Cost)
}

func (g *Gate) lookup(vendor domain.VendorID) (domain.ThrottleRule, *vendorUsage, error) {
	rule, ok := g.rules[vendor]
	if !ok {
		return domain.ThrottleRule{}, nil, fmt.Errorf("%w: %s", ErrUnknownVendor, vendor)
	}
	return rule, g.usageFor(vendor), nil
}

func (g *Gate) usageFor(vendor domain.VendorID) *vendorUsage {
	u, ok := g.usage[vendor]
	if !ok {
		u = &vendorUsage{breaker: newBreaker(g.breakerThreshold, g.breakerReset)}
		g.usage[vendor] = u
	}
	return u
}

func (g *Gate) publishCircuit(vendor domain.VendorID, u *vendorUsage) {
	var v float64
	switch u.breaker.currentState(g.now()) {
	case domain.CircuitHalfOpen:
		v = 1
	case domain.CircuitOpen:
		v = 2
	}
	metrics.CircuitState.WithLabelValues(string(vendor)).Set(v)
}
