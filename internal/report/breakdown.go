// Package report implements the aggregation and export core: balance
// computation, category and monthly breakdowns, and the CSV/HTML report
// artifacts. All grouping is a pure in-memory pass over rows already
// fetched from storage, so the same code works regardless of whether the
// store has native grouping.
package report

import (
	"sort"
	"time"

	"fintrack/internal/core"
)

// MonthKey derives the grouping key for the monthly trend: the first seven
// characters of the ISO date ("2024-01").
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// AggregateMonthly groups rows by (month, type) and accumulates total and
// count per group. The result is sorted ascending by month key, which is
// the order trend charts want; callers that display most-recent-first use
// SortMonthlyDesc. An empty input yields an empty slice.
func AggregateMonthly(rows []core.AggregationRow) []core.MonthlyTrendEntry {
	type key struct {
		month string
		typ   core.TransactionType
	}
	groups := make(map[key]*core.MonthlyTrendEntry)
	for _, r := range rows {
		k := key{month: MonthKey(r.Date), typ: r.Type}
		e, ok := groups[k]
		if !ok {
			e = &core.MonthlyTrendEntry{Month: k.month, Type: k.typ}
			groups[k] = e
		}
		e.Total.Cents += r.Cents
		e.Count++
	}

	entries := make([]core.MonthlyTrendEntry, 0, len(groups))
	for _, e := range groups {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Month != entries[j].Month {
			return entries[i].Month < entries[j].Month
		}
		// INCOME before EXPENSE within the same month, for a stable order.
		return entries[i].Type > entries[j].Type
	})
	return entries
}

// SortMonthlyDesc reorders trend entries most recent month first.
func SortMonthlyDesc(entries []core.MonthlyTrendEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Month != entries[j].Month {
			return entries[i].Month > entries[j].Month
		}
		return entries[i].Type > entries[j].Type
	})
}

// AggregateByCategory groups rows by (categoryID, type) and attaches the
// category metadata from cats. Groups whose category cannot be resolved
// (deleted in the meantime) are dropped rather than reported as an error.
// Entries are ordered by total descending, then category name.
func AggregateByCategory(rows []core.AggregationRow, cats map[string]core.Category) []core.CategoryBreakdownEntry {
	type key struct {
		categoryID string
		typ        core.TransactionType
	}
	groups := make(map[key]*core.CategoryBreakdownEntry)
	for _, r := range rows {
		k := key{categoryID: r.CategoryID, typ: r.Type}
		e, ok := groups[k]
		if !ok {
			cat, found := cats[r.CategoryID]
			if !found {
				continue
			}
			c := cat
			e = &core.CategoryBreakdownEntry{Category: &c, Type: k.typ}
			groups[k] = e
		}
		e.Total.Cents += r.Cents
		e.Count++
	}

	entries := make([]core.CategoryBreakdownEntry, 0, len(groups))
	for _, e := range groups {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total.Cents != entries[j].Total.Cents {
			return entries[i].Total.Cents > entries[j].Total.Cents
		}
		if entries[i].Category.Name != entries[j].Category.Name {
			return entries[i].Category.Name < entries[j].Category.Name
		}
		return entries[i].Type > entries[j].Type
	})
	return entries
}
