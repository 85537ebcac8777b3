package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"fintrack/internal/core"
	"fintrack/web"
)

// HTMLRenderer renders a financial report as a self-contained HTML
// document (inline styles, no external assets) suitable for download or
// print. The template is embedded and parsed once at construction.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() (*HTMLRenderer, error) {
	t, err := template.ParseFS(web.TemplatesFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &HTMLRenderer{tmpl: t}, nil
}

type htmlRow struct {
	Category string
	Type     string
	Total    string
	Count    int
	Class    string
}

type htmlData struct {
	PeriodStart      string
	PeriodEnd        string
	TotalIncome      string
	TotalExpense     string
	Balance          string
	TransactionCount int
	Rows             []htmlRow
}

// Render produces the HTML document. An empty breakdown renders an empty
// table body, never an error.
func (r *HTMLRenderer) Render(rep *core.FinancialReport) (string, error) {
	data := htmlData{
		PeriodStart:      "All time",
		PeriodEnd:        "Present",
		TotalIncome:      rep.Summary.TotalIncome.String(),
		TotalExpense:     rep.Summary.TotalExpense.String(),
		Balance:          rep.Summary.Balance.Balance.String(),
		TransactionCount: rep.Summary.TransactionCount,
	}
	if rep.Summary.Period.StartDate != nil {
		data.PeriodStart = rep.Summary.Period.StartDate.UTC().Format("2006-01-02")
	}
	if rep.Summary.Period.EndDate != nil {
		data.PeriodEnd = rep.Summary.Period.EndDate.UTC().Format("2006-01-02")
	}
	for _, e := range rep.CategoryBreakdown {
		categoryName := "Unknown"
		if e.Category != nil {
			categoryName = e.Category.Name
		}
		data.Rows = append(data.Rows, htmlRow{
			Category: categoryName,
			Type:     string(e.Type),
			Total:    e.Total.String(),
			Count:    e.Count,
			Class:    strings.ToLower(string(e.Type)),
		})
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "report.html", data); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}
	return buf.String(), nil
}
