package report

import (
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestRenderHTMLReport(t *testing.T) {
	r, err := NewHTMLRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	start := day(2024, 1, 1)
	rep := &core.FinancialReport{
		Summary: core.ReportSummary{
			Balance: core.Balance{
				TotalIncome:  core.Money{Cents: 50000},
				TotalExpense: core.Money{Cents: 5000},
				Balance:      core.Money{Cents: 45000},
			},
			TransactionCount: 2,
			Period:           core.Period{StartDate: &start},
		},
		CategoryBreakdown: []core.CategoryBreakdownEntry{
			{Category: &core.Category{Name: "Food"}, Type: core.Expense, Total: core.Money{Cents: 5000}, Count: 1},
		},
	}

	html, err := r.Render(rep)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		"2024-01-01 to Present",
		"$500.00",
		"$50.00",
		"$450.00",
		`class="expense"`,
		"<td>Food</td>",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("output missing %q:\n%s", want, html)
		}
	}
}

func TestRenderHTMLReportEmptyBreakdown(t *testing.T) {
	r, err := NewHTMLRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	html, err := r.Render(&core.FinancialReport{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "<tbody>") || !strings.Contains(html, "</tbody>") {
		t.Fatalf("expected table body markers:\n%s", html)
	}
	if !strings.Contains(html, "All time to Present") {
		t.Fatalf("expected unbounded period text:\n%s", html)
	}
	if strings.Contains(html, "<td>") {
		t.Fatalf("expected empty table body:\n%s", html)
	}
}
