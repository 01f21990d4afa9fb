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

// BayRepo implements storage.BayRepository on PostgreSQL.
type BayRepo struct {
	db *DB
}

func NewBayRepo(db *DB) *BayRepo {
	return &BayRepo{db: db}
}

type failureRow struct {
	ID          string         `db:"id"`
	Bay         string         `db:"bay"`
	SourceRowID string         `db:"source_row_id"`
	Agent       string         `db:"agent"`
	Reason      string         `db:"reason"`
	Evidence    []byte         `db:"evidence"`
	Status      string         `db:"status"`
	RepairNotes string         `db:"repair_notes"`
	Patch       sql.NullString `db:"patch"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
}

func (r *BayRepo) Add(ctx context.Context, rec *domain.FailureRecord) error {
	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	query := `
		INSERT INTO failure_records
			(id, bay, source_row_id, agent, reason, evidence, status, repair_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Bay, rec.SourceRowID, rec.Agent, rec.Reason,
		evidence, rec.Status, rec.RepairNotes, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert failure record: %w", err)
	}
	return nil
}

func (r *BayRepo) Get(ctx context.Context, bay domain.Bay, id string) (*domain.FailureRecord, error) {
	var row failureRow
	query := `SELECT * FROM failure_records WHERE bay = $1 AND id = $2`
	if err := r.db.GetContext(ctx, &row, query, bay, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get failure record: %w", err)
	}
	return row.toDomain()
}

func (r *BayRepo) Update(ctx context.Context, rec *domain.FailureRecord) error {
	var patch any
	if rec.Patch != nil {
		data, err := json.Marshal(rec.Patch)
		if err != nil {
			return fmt.Errorf("failed to marshal patch: %w", err)
		}
		patch = string(data)
	}

	query := `
		UPDATE failure_records
		SET status = $1, repair_notes = $2, patch = $3, updated_at = $4
		WHERE bay = $5 AND id = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.Status, rec.RepairNotes, patch, rec.UpdatedAt, rec.Bay, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update failure record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

func (r *BayRepo) List(ctx context.Context, bay domain.Bay) ([]*domain.FailureRecord, error) {
	var rows []failureRow
	query := `SELECT * FROM failure_records WHERE bay = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query, bay); err != nil {
		return nil, fmt.Errorf("failed to list failure records: %w", err)
	}

	out := make([]*domain.FailureRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *BayRepo) CountUnresolved(ctx context.Context, bay domain.Bay) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM failure_records WHERE bay = $1 AND status = 'routed'`
	if err := r.db.GetContext(ctx, &n, query, bay); err != nil {
		return 0, fmt.Errorf("failed to count unresolved records: %w", err)
	}
	return n, nil
}

func (row failureRow) toDomain() (*domain.FailureRecord, error) {
	rec := &domain.FailureRecord{
		ID:          row.ID,
		Bay:         domain.Bay(row.Bay),
		SourceRowID: row.SourceRowID,
		Agent:       domain.AgentName(row.Agent),
		Reason:      row.Reason,
		Status:      domain.RecordStatus(row.Status),
		RepairNotes: row.RepairNotes,
	}
	if row.CreatedAt.Valid {
		rec.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		rec.UpdatedAt = row.UpdatedAt.Time
	}
	if len(row.Evidence) > 0 {
		if err := json.Unmarshal(row.Evidence, &rec.Evidence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
		}
	}
	if row.Patch.Valid && row.Patch.String != "" {
		if err := json.Unmarshal([]byte(row.Patch.String), &rec.Patch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal patch: %w", err)
		}
	}
	return rec, nil
}
