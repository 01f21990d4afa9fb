package domain

import "time"

// Bay is a named partition storing failure records of one category.
type Bay string

const (
	BayCompanyFuzzy          Bay = "company_fuzzy_failures"
	BayPersonCompanyMismatch Bay = "person_company_mismatch"
	BayEmailPattern          Bay = "email_pattern_failures"
	BayEmailGeneration       Bay = "email_generation_failures"
	BayLinkedInResolution    Bay = "linkedin_resolution_failures"
	BaySlotDiscovery         Bay = "slot_discovery_failures"
	BayDOLSync               Bay = "dol_sync_failures"
	BayAgentFailures         Bay = "agent_failures"
)

// AllBays lists every bay in a stable order, used by reports.
var AllBays = []Bay{
	BayCompanyFuzzy,
	BayPersonCompanyMismatch,
	BayEmailPattern,
	BayEmailGeneration,
	BayLinkedInResolution,
	BaySlotDiscovery,
	BayDOLSync,
	BayAgentFailures,
}

// RecordStatus is the lifecycle state of a failure record.
// Routed records move to exactly one of the two terminal states.
type RecordStatus string

const (
	RecordRouted   RecordStatus = "routed"
	RecordRepaired RecordStatus = "repaired"
	RecordResolved RecordStatus = "resolved"
)

// Terminal reports whether the status admits no further transitions.
func (s RecordStatus) Terminal() bool {
	return s == RecordRepaired || s == RecordResolved
}

// FailureRecord is one routed failure. The evidence payload is immutable
// after routing; only the status, notes and patch may change.
type FailureRecord struct {
	ID          string         `json:"id"           db:"id"`
	Bay         Bay            `json:"bay"          db:"bay"`
	SourceRowID string         `json:"source_row_id" db:"source_row_id"`
	Agent       AgentName      `json:"agent"        db:"agent"`
	Reason      string         `json:"reason"       db:"reason"`
	Evidence    map[string]any `json:"evidence"`
	Status      RecordStatus   `json:"status"       db:"status"`
	RepairNotes string         `json:"repair_notes" db:"repair_notes"`
	Patch       map[string]any `json:"patch,omitempty"`
	CreatedAt   time.Time      `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"   db:"updated_at"`
}
