// Package budget tracks per-company enrichment spend against daily, weekly
// and monthly limits. Windows are calendar-aligned and rolled over lazily.
package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// Decision is the structured result of a budget check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Config holds budget configuration.
type Config struct {
	// Defaults apply to companies without an explicit override.
	Defaults domain.BudgetLimits `yaml:"defaults"`

	// Companies maps company id to override limits.
	Companies map[string]domain.BudgetLimits `yaml:"companies"`
}

// Accountant tracks spend per company. All operations are in-memory and
// non-blocking; persistence is handled by the caller through a
// BudgetRepository snapshot.
type Accountant struct {
	mu        sync.Mutex
	defaults  domain.BudgetLimits
	overrides map[string]domain.BudgetLimits
	companies map[string]*domain.CompanyBudget

	now func() time.Time
}

// NewAccountant creates an accountant from config.
func NewAccountant(cfg Config) *Accountant {
	return &Accountant{
		defaults:  cfg.Defaults,
		overrides: cfg.Companies,
		companies: make(map[string]*domain.CompanyBudget),
		now:       time.Now,
	}
}

// CanSpend checks whether spending cost for companyID would stay within
// every active budget window. Read-only.
func (a *Accountant) CanSpend(companyID string, vendor domain.VendorID, cost float64) Decision {
	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.company(companyID)
	a.roll(b)

	if b.Limits.Daily > 0 && b.SpentDay+cost > b.Limits.Daily {
		return Decision{Reason: fmt.Sprintf(
			"Daily budget exceeded for %s: spent %.2f of %.2f, attempted %.4f (%s)",
			companyID, b.SpentDay, b.Limits.Daily, cost, vendor)}
	}
	if b.Limits.Weekly > 0 && b.SpentWeek+cost > b.Limits.Weekly {
		return Decision{Reason: fmt.Sprintf(
			"Weekly budget exceeded for %s: spent %.2f of %.2f, attempted %.4f (%s)",
			companyID, b.SpentWeek, b.Limits.Weekly, cost, vendor)}
	}
	if b.Limits.Monthly > 0 && b.SpentMonth+cost > b.Limits.Monthly {
		return Decision{Reason: fmt.Sprintf(
			"Monthly budget exceeded for %s: spent %.2f of %.2f, attempted %.4f (%s)",
			companyID, b.SpentMonth, b.Limits.Monthly, cost, vendor)}
	}

	return Decision{Allowed: true}
}

// RecordSpend commits cost against every window for companyID.
func (a *Accountant) RecordSpend(companyID string, vendor domain.VendorID, cost float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.company(companyID)
	a.roll(b)

	b.SpentDay += cost
	b.SpentWeek += cost
	b.SpentMonth += cost
}

// Snapshot returns a copy of a company's budget state.
func (a *Accountant) Snapshot(companyID string) domain.CompanyBudget {
	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.company(companyID)
	a.roll(b)
	return *b
}

// Snapshots returns a copy of every tracked company budget.
func (a *Accountant) Snapshots() []domain.CompanyBudget {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.CompanyBudget, 0, len(a.companies))
	for _, b := range a.companies {
		a.roll(b)
		out = append(out, *b)
	}
	return out
}

// Restore seeds a company's counters from a persisted snapshot, keeping the
// configured limits. Stale windows are discarded on the next roll.
func (a *Accountant) Restore(b domain.CompanyBudget) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.company(b.CompanyID)
	cur.SpentDay = b.SpentDay
	cur.SpentWeek = b.SpentWeek
	cur.SpentMonth = b.SpentMonth
	cur.DayStart = b.DayStart
	cur.WeekStart = b.WeekStart
	cur.MonthStart = b.MonthStart
}

func (a *Accountant) company(companyID string) *domain.CompanyBudget {
	b, ok := a.companies[companyID]
	if !ok {
		limits := a.defaults
		if override, ok := a.overrides[companyID]; ok {
			limits = override
		}
		now := a.now()
		b = &domain.CompanyBudget{
			CompanyID:  companyID,
			Limits:     limits,
			DayStart:   dayStart(now),
			WeekStart:  weekStart(now),
			MonthStart: monthStart(now),
		}
		a.companies[companyID] = b
	}
	return b
}

func (a *Accountant) roll(b *domain.CompanyBudget) {
	now := a.now()
	if d := dayStart(now); b.DayStart.Before(d) {
		b.SpentDay = 0
		b.DayStart = d
	}
	if w := weekStart(now); b.WeekStart.Before(w) {
		b.SpentWeek = 0
		b.WeekStart = w
	}
	if m := monthStart(now); b.MonthStart.Before(m) {
		b.SpentMonth = 0
		b.MonthStart = m
	}
}

func dayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// weekStart returns the preceding Monday midnight.
func weekStart(now time.Time) time.Time {
	day := dayStart(now)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
