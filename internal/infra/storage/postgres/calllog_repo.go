package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// CallLogRepo implements storage.CallLogRepository on PostgreSQL.
type CallLogRepo struct {
	db *DB
}

func NewCallLogRepo(db *DB) *CallLogRepo {
	return &CallLogRepo{db: db}
}

func (r *CallLogRepo) Append(ctx context.Context, entry *domain.CallEntry) error {
	query := `INSERT INTO call_log (vendor, agent, cost, called_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, entry.Vendor, entry.Agent, entry.Cost, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append call entry: %w", err)
	}
	return nil
}

func (r *CallLogRepo) ByVendor(ctx context.Context, vendor domain.VendorID, limit int) ([]*domain.CallEntry, error) {
	var rows []*domain.CallEntry
	query := `
		SELECT vendor, agent, cost, called_at
		FROM (
			SELECT vendor, agent, cost, called_at
			FROM call_log WHERE vendor = $1
			ORDER BY called_at DESC LIMIT $2
		) recent
		ORDER BY called_at ASC
	`
	if err := r.db.SelectContext(ctx, &rows, query, vendor, limit); err != nil {
		return nil, fmt.Errorf("failed to query call log: %w", err)
	}
	return rows, nil
}

func (r *CallLogRepo) Since(ctx context.Context, t time.Time) ([]*domain.CallEntry, error) {
	var rows []*domain.CallEntry
	query := `SELECT vendor, agent, cost, called_at FROM call_log WHERE called_at >= $1 ORDER BY called_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query, t); err != nil {
		return nil, fmt.Errorf("failed to query call log: %w", err)
	}
	return rows, nil
}
