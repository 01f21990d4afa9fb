package throttle

import "time"

// Reason is the closed set of deny reasons, in evaluation order.
type Reason string

const (
	ReasonVendorDisabled  Reason = "vendor_disabled"
	ReasonCircuitOpen     Reason = "circuit_breaker_open"
	ReasonRateLimitMinute Reason = "rate_limit_minute"
	ReasonRateLimitHour   Reason = "rate_limit_hour"
	ReasonRateLimitDay    Reason = "rate_limit_day"
	ReasonCostLimitMinute Reason = "cost_limit_minute"
	ReasonCostLimitHour   Reason = "cost_limit_hour"
	ReasonCostLimitDay    Reason = "cost_limit_day"
	ReasonCompanyBudget   Reason = "company_budget"
)

// Decision is the structured result of a gate check. Denials carry a reason
// and, for the throttle error variants, a typed Err for failure routing.
// RetryAfter is an advisory hint only; the gate never sleeps.
type Decision struct {
	Permitted  bool
	Reason     Reason
	Detail     string
	RetryAfter time.Duration
	Err        Error
}

func permit() Decision {
	return Decision{Permitted: true}
}

func deny(reason Reason, detail string, retryAfter time.Duration, err Error) Decision {
	return Decision{
		Reason:     reason,
		Detail:     detail,
		RetryAfter: retryAfter,
		Err:        err,
	}
}

func rateReason(w Window) Reason {
	switch w {
	case WindowHour:
		return ReasonRateLimitHour
	case WindowDay:
		return ReasonRateLimitDay
	}
	return ReasonRateLimitMinute
}

func costReason(w Window) Reason {
	switch w {
	case WindowHour:
		return ReasonCostLimitHour
	case WindowDay:
		return ReasonCostLimitDay
	}
	return ReasonCostLimitMinute
}
