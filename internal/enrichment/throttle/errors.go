package throttle

import (
	"fmt"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// Kind discriminates the closed set of throttle error variants.
type Kind int

const (
	KindRateLimit Kind = iota
	KindCostLimit
	KindBudgetExceeded
	KindCircuitBreaker
)

// Error is the closed sum over throttle failure variants. Callers switch on
// ThrottleKind or type-assert on the concrete types below.
type Error interface {
	error
	ThrottleKind() Kind
	Retryable() bool
}

// RateLimitError reports a call-count cap violation.
type RateLimitError struct {
	Vendor     domain.VendorID
	Window     Window
	Limit      int
	Current    int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit for %s: %d/%d calls this %s, retry after %s",
		e.Vendor, e.Current, e.Limit, e.Window, e.RetryAfter)
}

func (e *RateLimitError) ThrottleKind() Kind { return KindRateLimit }
func (e *RateLimitError) Retryable() bool    { return true }

// CostLimitError reports a spend cap violation.
type CostLimitError struct {
	Vendor        domain.VendorID
	Window        Window
	Limit         float64
	Current       float64
	AttemptedCost float64
}

func (e *CostLimitError) Error() string {
	return fmt.Sprintf("cost limit for %s: spent %.4f of %.4f this %s, attempted %.4f",
		e.Vendor, e.Current, e.Limit, e.Window, e.AttemptedCost)
}

func (e *CostLimitError) ThrottleKind() Kind { return KindCostLimit }
func (e *CostLimitError) Retryable() bool    { return true }

// BudgetExceededError reports a company or global budget violation.
// Budgets do not roll over within the day, so it is not retryable.
type BudgetExceededError struct {
	Scope     string // "company" or "global"
	CompanyID string
	Limit     float64
	Current   float64
}

func (e *BudgetExceededError) Error() string {
	if e.Scope == "company" {
		return fmt.Sprintf("budget exceeded for company %s: spent %.4f of %.4f",
			e.CompanyID, e.Current, e.Limit)
	}
	return fmt.Sprintf("global budget exceeded: spent %.4f of %.4f", e.Current, e.Limit)
}

func (e *BudgetExceededError) ThrottleKind() Kind { return KindBudgetExceeded }
func (e *BudgetExceededError) Retryable() bool    { return false }

// CircuitBreakerError reports an open circuit for a vendor.
type CircuitBreakerError struct {
	Vendor              domain.VendorID
	Threshold           int
	ConsecutiveFailures int
	ResetAfter          time.Duration
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit open for %s: %d consecutive failures (threshold %d), resets in %s",
		e.Vendor, e.ConsecutiveFailures, e.Threshold, e.ResetAfter)
}

func (e *CircuitBreakerError) ThrottleKind() Kind { return KindCircuitBreaker }
func (e *CircuitBreakerError) Retryable() bool    { return true }
