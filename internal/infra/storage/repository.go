package storage

import (
	"context"
	"errors"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

var (
	// ErrRecordNotFound is returned when a failure record doesn't exist
	ErrRecordNotFound = errors.New("failure record not found")

	// ErrJobNotFound is returned when a resume job doesn't exist
	ErrJobNotFound = errors.New("resume job not found")
)

// BayRepository persists failure records partitioned by bay.
type BayRepository interface {
	// Add stores a new failure record under its bay
	Add(ctx context.Context, rec *domain.FailureRecord) error

	// Get retrieves a record by bay and id; ErrRecordNotFound if absent
	Get(ctx context.Context, bay domain.Bay, id string) (*domain.FailureRecord, error)

	// Update overwrites a record's mutable fields (status, notes, patch)
	Update(ctx context.Context, rec *domain.FailureRecord) error

	// List retrieves all records in a bay, oldest first
	List(ctx context.Context, bay domain.Bay) ([]*domain.FailureRecord, error)

	// CountUnresolved counts non-terminal records in a bay
	CountUnresolved(ctx context.Context, bay domain.Bay) (int, error)
}

// JobRepository persists resume jobs.
type JobRepository interface {
	// Save inserts or overwrites a job
	Save(ctx context.Context, job *domain.ResumeJob) error

	// Get retrieves a job by id; ErrJobNotFound if absent
	Get(ctx context.Context, id string) (*domain.ResumeJob, error)

	// List retrieves all jobs, enqueue order
	List(ctx context.Context) ([]*domain.ResumeJob, error)

	// UpdateStatus transitions a job's status
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error
}

// CallLogRepository persists the append-only vendor call history.
type CallLogRepository interface {
	// Append stores one call entry
	Append(ctx context.Context, entry *domain.CallEntry) error

	// ByVendor retrieves the most recent entries for a vendor
	ByVendor(ctx context.Context, vendor domain.VendorID, limit int) ([]*domain.CallEntry, error)

	// Since retrieves all entries after a point in time
	Since(ctx context.Context, t time.Time) ([]*domain.CallEntry, error)
}

// BudgetRepository persists per-company budget counters.
type BudgetRepository interface {
	// Get retrieves a company's budget, nil if never seen
	Get(ctx context.Context, companyID string) (*domain.CompanyBudget, error)

	// Save inserts or overwrites a company's budget
	Save(ctx context.Context, b *domain.CompanyBudget) error

	// List retrieves all known company budgets
	List(ctx context.Context) ([]*domain.CompanyBudget, error)
}
