package report

import (
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestGenerateCSVScenario(t *testing.T) {
	txs := []core.Transaction{{
		Type:        core.Income,
		Amount:      core.Money{Cents: 50000},
		Description: "Salary payment",
		Date:        day(2024, 1, 15),
		Category:    &core.Category{Name: "Salary"},
	}}

	got := GenerateCSV(TransactionRecords(txs))
	want := `"Date";"Type";"Amount";"Description";"Category"` + "\r\n" +
		`"2024-01-15";"INCOME";"500.00";"Salary payment";"Salary"`
	if got != want {
		t.Fatalf("unexpected CSV:\n got: %q\nwant: %q", got, want)
	}
}

func TestUTF8BOMBytes(t *testing.T) {
	if UTF8BOM != "\xef\xbb\xbf" {
		t.Fatalf("UTF8BOM = % x, want ef bb bf", []byte(UTF8BOM))
	}
}

func TestGenerateCSVEmpty(t *testing.T) {
	if got := GenerateCSV(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := GenerateCSV([]Record{}); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestGenerateCSVEscaping(t *testing.T) {
	records := []Record{{
		{Key: "Description", Value: `He said "hi"; twice`},
	}}
	got := GenerateCSV(records)
	want := `"Description"` + "\r\n" + `"He said ""hi"", twice"`
	if got != want {
		t.Fatalf("unexpected CSV:\n got: %q\nwant: %q", got, want)
	}
}

// Splitting on CRLF and semicolon with quote-unescaping reconstructs the
// original values for rows without semicolons.
func TestGenerateCSVRoundTrip(t *testing.T) {
	records := []Record{
		{
			{Key: "Date", Value: "2024-01-15"},
			{Key: "Description", Value: `café "U" & friends`},
			{Key: "Amount", Value: "12.34"},
		},
		{
			{Key: "Date", Value: "2024-02-02"},
			{Key: "Description", Value: "plain"},
			{Key: "Amount", Value: "0.99"},
		},
	}

	lines := strings.Split(GenerateCSV(records), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	for i, rec := range records {
		fields := strings.Split(lines[i+1], ";")
		if len(fields) != len(rec) {
			t.Fatalf("row %d: expected %d fields, got %d", i, len(rec), len(fields))
		}
		for j, f := range rec {
			unquoted := strings.TrimPrefix(strings.TrimSuffix(fields[j], `"`), `"`)
			unescaped := strings.ReplaceAll(unquoted, `""`, `"`)
			if unescaped != f.Value {
				t.Fatalf("row %d field %d: %q != %q", i, j, unescaped, f.Value)
			}
		}
	}
}

func TestBreakdownRecords(t *testing.T) {
	entries := []core.CategoryBreakdownEntry{
		{Category: &core.Category{Name: "Food"}, Type: core.Expense, Total: core.Money{Cents: 12000}, Count: 2},
		{Category: nil, Type: core.Expense, Total: core.Money{Cents: 500}, Count: 1},
	}

	got := GenerateCSV(BreakdownRecords(entries))
	want := `"Category";"Type";"Total";"TransactionCount"` + "\r\n" +
		`"Food";"EXPENSE";"120.00";"2"` + "\r\n" +
		`"Unknown";"EXPENSE";"5.00";"1"`
	if got != want {
		t.Fatalf("unexpected CSV:\n got: %q\nwant: %q", got, want)
	}
}

func TestTransactionRecordsUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	txs := []core.Transaction{{
		Type:        core.Expense,
		Amount:      core.Money{Cents: 100},
		Description: "x",
		Date:        time.Date(2024, 1, 15, 22, 0, 0, 0, loc),
	}}
	rec := TransactionRecords(txs)[0]
	if rec[0].Value != "2024-01-16" {
		t.Fatalf("expected UTC date 2024-01-16, got %s", rec[0].Value)
	}
	if rec[4].Value != "Unknown" {
		t.Fatalf("expected Unknown category, got %s", rec[4].Value)
	}
}
