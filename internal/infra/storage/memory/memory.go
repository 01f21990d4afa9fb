// Package memory provides in-memory repository implementations, used by
// tests and database-less runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/infra/storage"
)

// Store holds every in-memory repository behind one mutex.
type Store struct {
	mu      sync.RWMutex
	records map[domain.Bay]map[string]*domain.FailureRecord
	order   map[domain.Bay][]string
	jobs    map[string]*domain.ResumeJob
	jobIDs  []string
	calls   []*domain.CallEntry
	budgets map[string]*domain.CompanyBudget
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[domain.Bay]map[string]*domain.FailureRecord),
		order:   make(map[domain.Bay][]string),
		jobs:    make(map[string]*domain.ResumeJob),
		budgets: make(map[string]*domain.CompanyBudget),
	}
}

// -----------------------------------------------------------------------------
// Bay Repository
// -----------------------------------------------------------------------------

type BayRepo struct {
	store *Store
}

func NewBayRepo(store *Store) *BayRepo {
	return &BayRepo{store: store}
}

func (r *BayRepo) Add(ctx context.Context, rec *domain.FailureRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	bay, ok := r.store.records[rec.Bay]
	if !ok {
		bay = make(map[string]*domain.FailureRecord)
		r.store.records[rec.Bay] = bay
	}
	copied := *rec
	bay[rec.ID] = &copied
	r.store.order[rec.Bay] = append(r.store.order[rec.Bay], rec.ID)
	return nil
}

func (r *BayRepo) Get(ctx context.Context, bay domain.Bay, id string) (*domain.FailureRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.records[bay][id]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	copied := *rec
	return &copied, nil
}

func (r *BayRepo) Update(ctx context.Context, rec *domain.FailureRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.records[rec.Bay][rec.ID]; !ok {
		return storage.ErrRecordNotFound
	}
	copied := *rec
	r.store.records[rec.Bay][rec.ID] = &copied
	return nil
}

func (r *BayRepo) List(ctx context.Context, bay domain.Bay) ([]*domain.FailureRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.FailureRecord, 0, len(r.store.order[bay]))
	for _, id := range r.store.order[bay] {
		if rec, ok := r.store.records[bay][id]; ok {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *BayRepo) CountUnresolved(ctx context.Context, bay domain.Bay) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	n := 0
	for _, rec := range r.store.records[bay] {
		if !rec.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Job Repository
// -----------------------------------------------------------------------------

type JobRepo struct {
	store *Store
}

func NewJobRepo(store *Store) *JobRepo {
	return &JobRepo{store: store}
}

func (r *JobRepo) Save(ctx context.Context, job *domain.ResumeJob) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.jobs[job.ID]; !ok {
		r.store.jobIDs = append(r.store.jobIDs, job.ID)
	}
	copied := *job
	r.store.jobs[job.ID] = &copied
	return nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (*domain.ResumeJob, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	job, ok := r.store.jobs[id]
	if !ok {
		return nil, storage.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *JobRepo) List(ctx context.Context) ([]*domain.ResumeJob, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.ResumeJob, 0, len(r.store.jobIDs))
	for _, id := range r.store.jobIDs {
		if job, ok := r.store.jobs[id]; ok {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job, ok := r.store.jobs[id]
	if !ok {
		return storage.ErrJobNotFound
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	return nil
}

// -----------------------------------------------------------------------------
// Call Log Repository
// -----------------------------------------------------------------------------

type CallLogRepo struct {
	store *Store
}

func NewCallLogRepo(store *Store) *CallLogRepo {
	return &CallLogRepo{store: store}
}

func (r *CallLogRepo) Append(ctx context.Context, entry *domain.CallEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	copied := *entry
	r.store.calls = append(r.store.calls, &copied)
	return nil
}

func (r *CallLogRepo) ByVendor(ctx context.Context, vendor domain.VendorID, limit int) ([]*domain.CallEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.CallEntry, 0, limit)
	for i := len(r.store.calls) - 1; i >= 0 && len(out) < limit; i-- {
		if r.store.calls[i].Vendor == vendor {
			copied := *r.store.calls[i]
			out = append(out, &copied)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *CallLogRepo) Since(ctx context.Context, t time.Time) ([]*domain.CallEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.CallEntry
	for _, e := range r.store.calls {
		if !e.Timestamp.Before(t) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Budget Repository
// -----------------------------------------------------------------------------

type BudgetRepo struct {
	store *Store
}

func NewBudgetRepo(store *Store) *BudgetRepo {
	return &BudgetRepo{store: store}
}

func (r *BudgetRepo) Get(ctx context.Context, companyID string) (*domain.CompanyBudget, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	b, ok := r.store.budgets[companyID]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (r *BudgetRepo) Save(ctx context.Context, b *domain.CompanyBudget) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	copied := *b
	r.store.budgets[b.CompanyID] = &copied
	return nil
}

func (r *BudgetRepo) List(ctx context.Context) ([]*domain.CompanyBudget, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := make([]string, 0, len(r.store.budgets))
	for id := range r.store.budgets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*domain.CompanyBudget, 0, len(ids))
	for _, id := range ids {
		copied := *r.store.budgets[id]
		out = append(out, &copied)
	}
	return out, nil
}
