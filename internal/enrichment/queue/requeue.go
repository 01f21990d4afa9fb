package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/failures"
)

var (
	// ErrJobActive is returned when a record already has a non-terminal job.
	ErrJobActive = errors.New("record already has an active resume job")

	// ErrRecordTerminal is returned when a record is already repaired or
	// resolved and needs no rerun.
	ErrRecordTerminal = errors.New("record is already repaired or resolved")

	// ErrNoResumePoint is returned for a bay with no resume mapping.
	ErrNoResumePoint = errors.New("no resume point for bay")
)

// RequeueService composes the failure router and the job queue: it turns
// routed failures into resume jobs, enforcing at most one active job per
// failure record.
type RequeueService struct {
	router *failures.Router
	queue  *Queue
	log    *slog.Logger
}

// RepairReport aggregates unresolved failures and queue status.
type RepairReport struct {
	UnresolvedByBay map[domain.Bay]int `json:"unresolved_by_bay"`
	TotalUnresolved int                `json:"total_unresolved"`
	Queue           Stats              `json:"queue"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// NewRequeueService creates a requeue service.
func NewRequeueService(router *failures.Router, q *Queue, log *slog.Logger) *RequeueService {
	if log == nil {
		log = slog.Default()
	}
	return &RequeueService{
		router: router,
		queue:  q,
		log:    log.With("component", "requeue"),
	}
}

// Requeue resolves the record's resume point and enqueues a resume job.
// Fails with ErrRecordNotFound, ErrRecordTerminal or ErrJobActive rather
// than panicking, so batch tooling can continue past bad ids.
func (s *RequeueService) Requeue(ctx context.Context, bay domain.Bay, recordID string, priority domain.Priority) (*domain.ResumeJob, error) {
	rec, err := s.router.Get(ctx, bay, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordTerminal, bay, recordID)
	}
	if s.queue.HasActiveJob(recordID) {
		return nil, fmt.Errorf("%w: %s", ErrJobActive, recordID)
	}

	rp, ok := failures.ResumePointForBay(bay)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoResumePoint, bay)
	}

	job, err := s.queue.EnqueueResumeEnrichment(ctx, bay, recordID, rp, priority, rec.Patch)
	if err != nil {
		return nil, err
	}

	s.log.Info("requeued failure",
		"bay", bay, "record_id", recordID,
		"resume_node", rp.Node, "resume_agent", rp.Agent, "priority", priority)
	return job, nil
}

// FixAndRerun stores a corrected payload on the failure record before
// enqueuing, so the resumed agent sees the corrected inputs.
func (s *RequeueService) FixAndRerun(ctx context.Context, bay domain.Bay, recordID string, patch map[string]any) (*domain.ResumeJob, error) {
	rec, err := s.router.Get(ctx, bay, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordTerminal, bay, recordID)
	}

	rec.Patch = patch
	rec.UpdatedAt = time.Now()
	if err := s.router.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store patch: %w", err)
	}

	return s.Requeue(ctx, bay, recordID, domain.PriorityHigh)
}

// MarkManuallyResolved closes a record without creating a job. Returns
// false when the record is missing or already terminal.
func (s *RequeueService) MarkManuallyResolved(ctx context.Context, bay domain.Bay, recordID, note string) bool {
	return s.router.MarkResolved(ctx, bay, recordID, note)
}

// GenerateRepairReport aggregates unresolved-by-bay counts and queue
// status.
func (s *RequeueService) GenerateRepairReport(ctx context.Context) (RepairReport, error) {
	report := RepairReport{
		UnresolvedByBay: make(map[domain.Bay]int),
		Queue:           s.queue.Stats(),
		GeneratedAt:     time.Now(),
	}

	for _, bay := range domain.AllBays {
		n, err := s.countUnresolved(ctx, bay)
		if err != nil {
			return RepairReport{}, fmt.Errorf("failed to count bay %s: %w", bay, err)
		}
		report.UnresolvedByBay[bay] = n
		report.TotalUnresolved += n
	}
	return report, nil
}

func (s *RequeueService) countUnresolved(ctx context.Context, bay domain.Bay) (int, error) {
	return s.router.CountUnresolved(ctx, bay)
}
