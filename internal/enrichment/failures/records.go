// Package failures classifies agent and vendor failures into named bays and
// tracks their repair lifecycle. Every failure the pipeline sees ends up in
// exactly one of the eight bays with enough structured evidence for a human
// to act without re-running the pipeline.
package failures

import (
	"fmt"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// CompanyFuzzyFailure is raised when fuzzy company matching cannot settle
// on a confident match.
type CompanyFuzzyFailure struct {
	RowID       string  `json:"row_id"`
	CompanyName string  `json:"company_name"`
	BestMatch   string  `json:"best_match"`
	Score       float64 `json:"score"`
	Threshold   float64 `json:"threshold"`
}

func (f CompanyFuzzyFailure) reason() string {
	return fmt.Sprintf("fuzzy match for %q scored %.2f against %q (threshold %.2f)",
		f.CompanyName, f.Score, f.BestMatch, f.Threshold)
}

// PersonCompanyMismatch is raised when a resolved person does not belong to
// the matched company.
type PersonCompanyMismatch struct {
	RowID           string `json:"row_id"`
	PersonName      string `json:"person_name"`
	PersonCompany   string `json:"person_company"`
	ExpectedCompany string `json:"expected_company"`
}

func (f PersonCompanyMismatch) reason() string {
	return fmt.Sprintf("%s works at %q, expected %q",
		f.PersonName, f.PersonCompany, f.ExpectedCompany)
}

// EmailPatternFailure is raised when no email pattern can be discovered for
// a company domain.
type EmailPatternFailure struct {
	RowID   string   `json:"row_id"`
	Domain  string   `json:"domain"`
	Samples []string `json:"samples"`
	Detail  string   `json:"detail"`
}

func (f EmailPatternFailure) reason() string {
	return fmt.Sprintf("no email pattern for %s (%d samples): %s",
		f.Domain, len(f.Samples), f.Detail)
}

// EmailGenerationFailure is raised when generating an address from a known
// pattern fails.
type EmailGenerationFailure struct {
	RowID      string `json:"row_id"`
	PersonName string `json:"person_name"`
	Domain     string `json:"domain"`
	Pattern    string `json:"pattern"`
	Detail     string `json:"detail"`
}

func (f EmailGenerationFailure) reason() string {
	return fmt.Sprintf("could not generate email for %s at %s using pattern %q: %s",
		f.PersonName, f.Domain, f.Pattern, f.Detail)
}

// LinkedInResolutionFailure is raised when a person's profile cannot be
// resolved.
type LinkedInResolutionFailure struct {
	RowID       string `json:"row_id"`
	PersonName  string `json:"person_name"`
	CompanyName string `json:"company_name"`
	ProfileURL  string `json:"profile_url"`
	Detail      string `json:"detail"`
}

func (f LinkedInResolutionFailure) reason() string {
	return fmt.Sprintf("could not resolve profile for %s at %s: %s",
		f.PersonName, f.CompanyName, f.Detail)
}

// SlotDiscoveryFailure is raised when no candidate can be found for an
// executive slot.
type SlotDiscoveryFailure struct {
	RowID       string `json:"row_id"`
	CompanyName string `json:"company_name"`
	Slot        string `json:"slot"`
	Detail      string `json:"detail"`
}

func (f SlotDiscoveryFailure) reason() string {
	return fmt.Sprintf("no candidate for %s slot at %s: %s", f.Slot, f.CompanyName, f.Detail)
}

// DOLSyncFailure is raised when Department of Labor filings cannot be
// synced for a company.
type DOLSyncFailure struct {
	RowID       string `json:"row_id"`
	EIN         string `json:"ein"`
	CompanyName string `json:"company_name"`
	Detail      string `json:"detail"`
}

func (f DOLSyncFailure) reason() string {
	return fmt.Sprintf("DOL sync failed for %s (EIN %s): %s", f.CompanyName, f.EIN, f.Detail)
}

// AgentFailure is the catch-all payload for unclassified agent errors.
type AgentFailure struct {
	RowID  string           `json:"row_id"`
	Agent  domain.AgentName `json:"agent"`
	Detail string           `json:"detail"`
}

func (f AgentFailure) reason() string {
	return fmt.Sprintf("%s failed: %s", f.Agent, f.Detail)
}
