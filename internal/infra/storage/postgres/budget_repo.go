package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// BudgetRepo implements storage.BudgetRepository on PostgreSQL.
type BudgetRepo struct {
	db *DB
}

func NewBudgetRepo(db *DB) *BudgetRepo {
	return &BudgetRepo{db: db}
}

type budgetRow struct {
	CompanyID  string       `db:"company_id"`
	SpentDay   float64      `db:"spent_day"`
	SpentWeek  float64      `db:"spent_week"`
	SpentMonth float64      `db:"spent_month"`
	DayStart   sql.NullTime `db:"day_start"`
	WeekStart  sql.NullTime `db:"week_start"`
	MonthStart sql.NullTime `db:"month_start"`
}

func (r *BudgetRepo) Get(ctx context.Context, companyID string) (*domain.CompanyBudget, error) {
	var row budgetRow
	query := `SELECT * FROM company_budgets WHERE company_id = $1`
	if err := r.db.GetContext(ctx, &row, query, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company budget: %w", err)
	}

	b := &domain.CompanyBudget{
		CompanyID:  row.CompanyID,
		SpentDay:   row.SpentDay,
		SpentWeek:  row.SpentWeek,
		SpentMonth: row.SpentMonth,
	}
	if row.DayStart.Valid {
		b.DayStart = row.DayStart.Time
	}
	if row.WeekStart.Valid {
		b.WeekStart = row.WeekStart.Time
	}
	if row.MonthStart.Valid {
		b.MonthStart = row.MonthStart.Time
	}
	return b, nil
}

func (r *BudgetRepo) Save(ctx context.Context, b *domain.CompanyBudget) error {
	query := `
		INSERT INTO company_budgets
			(company_id, spent_day, spent_week, spent_month, day_start, week_start, month_start)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company_id) DO UPDATE SET
			spent_day = EXCLUDED.spent_day,
			spent_week = EXCLUDED.spent_week,
			spent_month = EXCLUDED.spent_month,
			day_start = EXCLUDED.day_start,
			week_start = EXCLUDED.week_start,
			month_start = EXCLUDED.month_start
	`
	_, err := r.db.ExecContext(ctx, query,
		b.CompanyID, b.SpentDay, b.SpentWeek, b.SpentMonth,
		b.DayStart, b.WeekStart, b.MonthStart)
	if err != nil {
		return fmt.Errorf("failed to save company budget: %w", err)
	}
	return nil
}

func (r *BudgetRepo) List(ctx context.Context) ([]*domain.CompanyBudget, error) {
	var rows []budgetRow
	query := `SELECT * FROM company_budgets ORDER BY company_id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list company budgets: %w", err)
	}

	budgets := make([]*domain.CompanyBudget, 0, len(rows))
	for _, row := range rows {
		b := &domain.CompanyBudget{
			CompanyID:  row.CompanyID,
			SpentDay:   row.SpentDay,
			SpentWeek:  row.SpentWeek,
			SpentMonth: row.SpentMonth,
		}
		if row.DayStart.Valid {
			b.DayStart = row.DayStart.Time
		}
		if row.WeekStart.Valid {
			b.WeekStart = row.WeekStart.Time
		}
		if row.MonthStart.Valid {
			b.MonthStart = row.MonthStart.Time
		}
		budgets = append(budgets, b)
	}
	return budgets, nil
}
