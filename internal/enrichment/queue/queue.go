// Package queue holds the resume-job priority queue and the requeue service
// that turns routed failures into resume jobs.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/failures"
	"github.com/leadgrid/gatekeeper/internal/enrichment/metrics"
	"github.com/leadgrid/gatekeeper/internal/infra/storage"
)

// Stats reports queue composition.
type Stats struct {
	Total      int                      `json:"total"`
	ByStatus   map[domain.JobStatus]int `json:"by_status"`
	ByType     map[domain.JobType]int   `json:"by_type"`
	ByPriority map[domain.Priority]int  `json:"by_priority"`
}

// queuedJob pairs a job with its enqueue sequence for FIFO tie-breaking.
type queuedJob struct {
	job *domain.ResumeJob
	seq uint64
}

// Queue is a priority queue of resume jobs: urgent > high > normal > low,
// FIFO within a tier. Jobs are mirrored into a JobRepository so a shared
// store can take over dispatch in multi-worker deployments.
type Queue struct {
	mu    sync.Mutex
	items []queuedJob
	seq   uint64
	repo  storage.JobRepository
}

// NewQueue creates a queue backed by the given repository.
func NewQueue(repo storage.JobRepository) *Queue {
	return &Queue{repo: repo}
}

// EnqueueResumeEnrichment builds and enqueues a job that re-enters the
// pipeline at the bay's resume point.
func (q *Queue) EnqueueResumeEnrichment(ctx context.Context, bay domain.Bay, recordID string, rp failures.ResumePoint, priority domain.Priority, payload map[string]any) (*domain.ResumeJob, error) {
	return q.enqueue(ctx, &domain.ResumeJob{
		Type:           domain.JobResumeEnrichment,
		SourceBay:      bay,
		SourceRecordID: recordID,
		ResumeNode:     rp.Node,
		ResumeAgent:    rp.Agent,
		Priority:       priority,
		Payload:        payload,
	})
}

// EnqueueManualRepair builds and enqueues an operator-driven repair job.
func (q *Queue) EnqueueManualRepair(ctx context.Context, bay domain.Bay, recordID string, rp failures.ResumePoint, payload map[string]any) (*domain.ResumeJob, error) {
	return q.enqueue(ctx, &domain.ResumeJob{
		Type:           domain.JobManualRepair,
		SourceBay:      bay,
		SourceRecordID: recordID,
		ResumeNode:     rp.Node,
		ResumeAgent:    rp.Agent,
		Priority:       domain.PriorityUrgent,
		Payload:        payload,
	})
}

// NextJob returns the highest-priority pending job without removing it, or
// nil when no job is pending. Ties break by enqueue order.
func (q *Queue) NextJob() *domain.ResumeJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *queuedJob
	for i := range q.items {
		item := &q.items[i]
		if item.job.Status != domain.JobPending {
			continue
		}
		if best == nil || rankLess(item, best) {
			best = item
		}
	}
	if best == nil {
		return nil
	}
	copied := *best.job
	return &copied
}

// MarkInProgress transitions a pending job to in_progress.
func (q *Queue) MarkInProgress(ctx context.Context, id string) error {
	return q.transition(ctx, id, domain.JobInProgress)
}

// MarkCompleted transitions a job to completed.
func (q *Queue) MarkCompleted(ctx context.Context, id string) error {
	return q.transition(ctx, id, domain.JobCompleted)
}

// MarkFailed transitions a job to failed.
func (q *Queue) MarkFailed(ctx context.Context, id string) error {
	return q.transition(ctx, id, domain.JobFailed)
}

// Cancel marks a job cancelled before dequeue.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	return q.transition(ctx, id, domain.JobCancelled)
}

// HasActiveJob reports whether a non-terminal job exists for a failure
// record.
func (q *Queue) HasActiveJob(recordID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].job.SourceRecordID == recordID && q.items[i].job.Status.Active() {
			return true
		}
	}
	return false
}

// Get returns a copy of a job by id.
func (q *Queue) Get(id string) (*domain.ResumeJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].job.ID == id {
			copied := *q.items[i].job
			return &copied, true
		}
	}
	return nil, false
}

// Stats reports counts by status, type and priority.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{
		Total:      len(q.items),
		ByStatus:   make(map[domain.JobStatus]int),
		ByType:     make(map[domain.JobType]int),
		ByPriority: make(map[domain.Priority]int),
	}
	for i := range q.items {
		job := q.items[i].job
		s.ByStatus[job.Status]++
		s.ByType[job.Type]++
		s.ByPriority[job.Priority]++
	}
	return s
}

func (q *Queue) enqueue(ctx context.Context, job *domain.ResumeJob) (*domain.ResumeJob, error) {
	now := time.Now()
	job.ID = uuid.New().String()
	job.Status = domain.JobPending
	job.EnqueuedAt = now
	job.UpdatedAt = now
	if job.Priority == "" {
		job.Priority = domain.PriorityNormal
	}

	if err := q.repo.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	q.mu.Lock()
	q.seq++
	q.items = append(q.items, queuedJob{job: job, seq: q.seq})
	pending := q.countPending()
	q.mu.Unlock()

	metrics.JobsEnqueued.WithLabelValues(string(job.Type), string(job.Priority)).Inc()
	metrics.QueueDepth.Set(float64(pending))

	copied := *job
	return &copied, nil
}

func (q *Queue) transition(ctx context.Context, id string, status domain.JobStatus) error {
	q.mu.Lock()
	var job *domain.ResumeJob
	for i := range q.items {
		if q.items[i].job.ID == id {
			job = q.items[i].job
			break
		}
	}
	if job == nil {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", storage.ErrJobNotFound, id)
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	pending := q.countPending()
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(pending))

	if err := q.repo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to persist job status: %w", err)
	}
	return nil
}

// countPending requires q.mu held.
func (q *Queue) countPending() int {
	n := 0
	for i := range q.items {
		if q.items[i].job.Status == domain.JobPending {
			n++
		}
	}
	return n
}

func rankLess(a, b *queuedJob) bool {
	ra, rb := a.job.Priority.Rank(), b.job.Priority.Rank()
	if ra != rb {
		return ra < rb
	}
	return a.seq < b.seq
}
