package domain

import "time"

// VendorID identifies an external rate/cost-limited data provider.
type VendorID string

const (
	VendorHunter    VendorID = "hunter"
	VendorProxycurl VendorID = "proxycurl"
	VendorApollo    VendorID = "apollo"
	VendorOpenAI    VendorID = "openai"
	VendorDOL       VendorID = "dol"

	// VendorInternal marks agents that run pure in-process logic and are
	// never throttled.
	VendorInternal VendorID = "internal"
)

// ThrottleRule holds per-vendor admission limits. A zero cap means
// unlimited on that dimension.
type ThrottleRule struct {
	MaxCallsPerMinute int `yaml:"max_calls_per_minute" json:"max_calls_per_minute"`
	MaxCallsPerHour   int `yaml:"max_calls_per_hour"   json:"max_calls_per_hour"`
	MaxCallsPerDay    int `yaml:"max_calls_per_day"    json:"max_calls_per_day"`

	MaxCostPerMinute float64 `yaml:"max_cost_per_minute" json:"max_cost_per_minute"`
	MaxCostPerHour   float64 `yaml:"max_cost_per_hour"   json:"max_cost_per_hour"`
	MaxCostPerDay    float64 `yaml:"max_cost_per_day"    json:"max_cost_per_day"`

	Cooldown             time.Duration `yaml:"cooldown"               json:"cooldown"`
	ExponentialBackoff   bool          `yaml:"exponential_backoff"    json:"exponential_backoff"`
	MaxBackoffMultiplier int           `yaml:"max_backoff_multiplier" json:"max_backoff_multiplier"`
}

// CircuitState is the breaker state for a vendor.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CallEntry is one row of the append-only vendor call history.
type CallEntry struct {
	Vendor    VendorID  `json:"vendor"    db:"vendor"`
	Agent     AgentName `json:"agent"     db:"agent"`
	Cost      float64   `json:"cost"      db:"cost"`
	Timestamp time.Time `json:"timestamp" db:"called_at"`
}
