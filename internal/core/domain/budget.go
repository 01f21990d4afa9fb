package domain

import "time"

// BudgetLimits caps a company's enrichment spend per calendar window.
// A zero limit means unlimited on that window.
type BudgetLimits struct {
	Daily   float64 `yaml:"daily"   json:"daily"`
	Weekly  float64 `yaml:"weekly"  json:"weekly"`
	Monthly float64 `yaml:"monthly" json:"monthly"`
}

// CompanyBudget tracks spend against limits for one company.
type CompanyBudget struct {
	CompanyID  string       `json:"company_id"  db:"company_id"`
	Limits     BudgetLimits `json:"limits"`
	SpentDay   float64      `json:"spent_day"   db:"spent_day"`
	SpentWeek  float64      `json:"spent_week"  db:"spent_week"`
	SpentMonth float64      `json:"spent_month" db:"spent_month"`
	DayStart   time.Time    `json:"day_start"   db:"day_start"`
	WeekStart  time.Time    `json:"week_start"  db:"week_start"`
	MonthStart time.Time    `json:"month_start" db:"month_start"`
}
