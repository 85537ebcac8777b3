package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/charts"
	"fintrack/internal/core"
)

// Store is the storage access the reporting core needs. The SQLite
// repository satisfies it; tests supply fakes.
type Store interface {
	// SumAmounts returns the sum of amounts in cents for one transaction
	// type within an optional inclusive date range. No matching rows means
	// zero, not an error.
	SumAmounts(ctx context.Context, ownerID string, typ core.TransactionType, start, end *time.Time) (int64, error)
	// AggregationRows returns one row per transaction matching the filter.
	AggregationRows(ctx context.Context, ownerID string, f core.ReportFilter) ([]core.AggregationRow, error)
	// CategoriesByIDs resolves category metadata for the given ids, scoped
	// to the owner. Unknown ids are simply absent from the result.
	CategoriesByIDs(ctx context.Context, ownerID string, ids []string) (map[string]core.Category, error)
	// ListTransactions returns matching transactions with category and tags
	// resolved, ordered by date descending, plus the total match count.
	// A filter limit of zero disables pagination.
	ListTransactions(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, int, error)
}

// Service composes balance, breakdowns and listings into reports and
// exports. It performs no writes and holds no mutable state.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Balance sums amounts by type within the optional inclusive range and
// derives the net. The two sums are independent reads and run concurrently.
func (s *Service) Balance(ctx context.Context, ownerID string, start, end *time.Time) (core.Balance, error) {
	var income, expense int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.store.SumAmounts(gctx, ownerID, core.Income, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		expense, err = s.store.SumAmounts(gctx, ownerID, core.Expense, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Balance{}, fmt.Errorf("sum amounts: %w", err)
	}

	return core.Balance{
		TotalIncome:  core.Money{Cents: income},
		TotalExpense: core.Money{Cents: expense},
		Balance:      core.Money{Cents: income - expense},
	}, nil
}

// CategoryBreakdown groups transactions by (category, type). The category
// filter is intentionally not applied here: the breakdown always spans all
// of the owner's categories so that per-category shares stay meaningful.
func (s *Service) CategoryBreakdown(ctx context.Context, ownerID string, f core.ReportFilter) ([]core.CategoryBreakdownEntry, error) {
	f.CategoryID = ""
	rows, err := s.store.AggregationRows(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("aggregation rows: %w", err)
	}
	if len(rows) == 0 {
		return []core.CategoryBreakdownEntry{}, nil
	}

	ids := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if !seen[r.CategoryID] {
			seen[r.CategoryID] = true
			ids = append(ids, r.CategoryID)
		}
	}
	cats, err := s.store.CategoriesByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve categories: %w", err)
	}

	return AggregateByCategory(rows, cats), nil
}

// MonthlyTrend groups transactions by (month, type), ascending by month.
func (s *Service) MonthlyTrend(ctx context.Context, ownerID string, f core.ReportFilter) ([]core.MonthlyTrendEntry, error) {
	rows, err := s.store.AggregationRows(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("aggregation rows: %w", err)
	}
	return AggregateMonthly(rows), nil
}

// FinancialReport assembles the full report document. The four source
// queries are independent reads with no shared state, so they fan out
// concurrently and join before composition. Either the complete report is
// returned or the request fails as a whole.
func (s *Service) FinancialReport(ctx context.Context, ownerID string, f core.ReportFilter) (*core.FinancialReport, error) {
	var (
		balance   core.Balance
		txs       []core.Transaction
		breakdown []core.CategoryBreakdownEntry
		trend     []core.MonthlyTrendEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.Balance(gctx, ownerID, f.StartDate, f.EndDate)
		return err
	})
	g.Go(func() error {
		var err error
		txs, _, err = s.store.ListTransactions(gctx, ownerID, transactionFilter(f))
		return err
	})
	g.Go(func() error {
		var err error
		breakdown, err = s.CategoryBreakdown(gctx, ownerID, f)
		return err
	})
	g.Go(func() error {
		var err error
		trend, err = s.MonthlyTrend(gctx, ownerID, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}

	if txs == nil {
		txs = []core.Transaction{}
	}
	return &core.FinancialReport{
		Summary: core.ReportSummary{
			Balance:          balance,
			TransactionCount: len(txs),
			Period:           core.Period{StartDate: f.StartDate, EndDate: f.EndDate},
		},
		Transactions:      txs,
		CategoryBreakdown: breakdown,
		MonthlyTrend:      trend,
	}, nil
}

// Statistics is the dashboard aggregate: balance plus both breakdowns with
// the monthly entries ordered most recent first.
func (s *Service) Statistics(ctx context.Context, ownerID string, start, end *time.Time) (*core.Statistics, error) {
	f := core.ReportFilter{StartDate: start, EndDate: end}

	var (
		balance core.Balance
		cats    []core.CategoryBreakdownEntry
		monthly []core.MonthlyTrendEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.Balance(gctx, ownerID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.CategoryBreakdown(gctx, ownerID, f)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = s.MonthlyTrend(gctx, ownerID, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble statistics: %w", err)
	}

	SortMonthlyDesc(monthly)
	return &core.Statistics{
		Balance:       balance,
		CategoryStats: cats,
		MonthlyStats:  monthly,
	}, nil
}

// MonthlyTrendChart renders the monthly income/expense trend as a PNG.
// No matching transactions yields nil bytes and no error.
func (s *Service) MonthlyTrendChart(ctx context.Context, ownerID string, f core.ReportFilter) ([]byte, error) {
	trend, err := s.MonthlyTrend(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	return charts.MonthlyTrendPNG(trend)
}

// ExportTransactionsCSV renders the filtered transaction list as CSV.
func (s *Service) ExportTransactionsCSV(ctx context.Context, ownerID string, f core.ReportFilter) (string, error) {
	txs, _, err := s.store.ListTransactions(ctx, ownerID, transactionFilter(f))
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}
	return GenerateCSV(TransactionRecords(txs)), nil
}

// ExportCategoryBreakdownCSV renders the category breakdown as CSV.
func (s *Service) ExportCategoryBreakdownCSV(ctx context.Context, ownerID string, f core.ReportFilter) (string, error) {
	breakdown, err := s.CategoryBreakdown(ctx, ownerID, f)
	if err != nil {
		return "", err
	}
	return GenerateCSV(BreakdownRecords(breakdown)), nil
}

// transactionFilter widens a report filter into an unpaginated listing
// filter.
func transactionFilter(f core.ReportFilter) core.TransactionFilter {
	return core.TransactionFilter{
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
		Type:       f.Type,
		CategoryID: f.CategoryID,
	}
}
