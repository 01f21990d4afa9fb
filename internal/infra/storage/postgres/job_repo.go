package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/infra/storage"
)

// JobRepo implements storage.JobRepository on PostgreSQL.
type JobRepo struct {
	db *DB
}

func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

type jobRow struct {
	ID             string         `db:"id"`
	JobType        string         `db:"job_type"`
	SourceBay      string         `db:"source_bay"`
	SourceRecordID string         `db:"source_record_id"`
	ResumeNode     string         `db:"resume_node"`
	ResumeAgent    string         `db:"resume_agent"`
	Priority       string         `db:"priority"`
	Status         string         `db:"status"`
	Payload        sql.NullString `db:"payload"`
	EnqueuedAt     sql.NullTime   `db:"enqueued_at"`
	UpdatedAt      sql.NullTime   `db:"updated_at"`
}

func (r *JobRepo) Save(ctx context.Context, job *domain.ResumeJob) error {
	var payload any
	if job.Payload != nil {
		data, err := json.Marshal(job.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = string(data)
	}

	query := `
		INSERT INTO resume_jobs
			(id, job_type, source_bay, source_record_id, resume_node, resume_agent,
			 priority, status, payload, enqueued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Type, job.SourceBay, job.SourceRecordID, job.ResumeNode,
		job.ResumeAgent, job.Priority, job.Status, payload, job.EnqueuedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (*domain.ResumeJob, error) {
	var row jobRow
	query := `SELECT * FROM resume_jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return row.toDomain()
}

func (r *JobRepo) List(ctx context.Context) ([]*domain.ResumeJob, error) {
	var rows []jobRow
	query := `SELECT * FROM resume_jobs ORDER BY enqueued_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	out := make([]*domain.ResumeJob, 0, len(rows))
	for _, row := range rows {
		job, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error {
	query := `UPDATE resume_jobs SET status = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrJobNotFound
	}
	return nil
}

func (row jobRow) toDomain() (*domain.ResumeJob, error) {
	job := &domain.ResumeJob{
		ID:             row.ID,
		Type:           domain.JobType(row.JobType),
		SourceBay:      domain.Bay(row.SourceBay),
		SourceRecordID: row.SourceRecordID,
		ResumeNode:     domain.NodeName(row.ResumeNode),
		ResumeAgent:    domain.AgentName(row.ResumeAgent),
		Priority:       domain.Priority(row.Priority),
		Status:         domain.JobStatus(row.Status),
	}
	if row.EnqueuedAt.Valid {
		job.EnqueuedAt = row.EnqueuedAt.Time
	}
	if row.UpdatedAt.Valid {
		job.UpdatedAt = row.UpdatedAt.Time
	}
	if row.Payload.Valid && row.Payload.String != "" {
		if err := json.Unmarshal([]byte(row.Payload.String), &job.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	return job, nil
}
