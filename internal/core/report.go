package core

import "time"

// Balance is the derived income/expense/net triple for an owner and period.
// It is never persisted.
type Balance struct {
	TotalIncome  Money `json:"totalIncome"`
	TotalExpense Money `json:"totalExpense"`
	Balance      Money `json:"balance"`
}

// CategoryBreakdownEntry is one (category, type) aggregation group.
type CategoryBreakdownEntry struct {
	Category *Category       `json:"category"`
	Type     TransactionType `json:"type"`
	Total    Money           `json:"total"`
	Count    int             `json:"count"`
}

// MonthlyTrendEntry is one (month, type) aggregation group. Month is the
// first seven characters of the ISO date ("2024-01").
type MonthlyTrendEntry struct {
	Month string          `json:"month"`
	Type  TransactionType `json:"type"`
	Total Money           `json:"total"`
	Count int             `json:"count"`
}

// Period echoes the requested date bounds; nil means unbounded.
type Period struct {
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type ReportSummary struct {
	Balance
	TransactionCount int    `json:"transactionCount"`
	Period           Period `json:"period"`
}

// FinancialReport is the composed read-only report document. Built per
// request, never stored.
type FinancialReport struct {
	Summary           ReportSummary            `json:"summary"`
	Transactions      []Transaction            `json:"transactions"`
	CategoryBreakdown []CategoryBreakdownEntry `json:"categoryBreakdown"`
	MonthlyTrend      []MonthlyTrendEntry      `json:"monthlyTrend"`
}

// Statistics is the dashboard aggregate: balance plus both breakdowns,
// monthly entries ordered most recent first.
type Statistics struct {
	Balance       Balance                  `json:"balance"`
	CategoryStats []CategoryBreakdownEntry `json:"categoryStats"`
	MonthlyStats  []MonthlyTrendEntry      `json:"monthlyStats"`
}

// CategoryStatistics summarizes one category over an optional period.
type CategoryStatistics struct {
	TotalIncome      Money `json:"totalIncome"`
	TotalExpense     Money `json:"totalExpense"`
	TransactionCount int   `json:"transactionCount"`
}

// ReportFilter scopes reports and breakdowns. All fields are optional.
type ReportFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CategoryID string
	Type       *TransactionType
}

// TransactionFilter scopes transaction listings.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Type       *TransactionType
	CategoryID string
	MinCents   *int64
	MaxCents   *int64
	Tags       []string
	Page       int
	Limit      int
}

// Normalize clamps pagination to sane defaults.
func (f *TransactionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// AggregationRow is the minimal projection the breakdown aggregator needs:
// one row per transaction in scope.
type AggregationRow struct {
	Date       time.Time
	Type       TransactionType
	CategoryID string
	Cents      int64
}
