// Package charts renders report aggregates as PNG images.
package charts

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"fintrack/internal/core"
)

// MonthlyTrendPNG renders income and expense lines over the trend months.
// Returns nil bytes when there is nothing to draw.
func MonthlyTrendPNG(entries []core.MonthlyTrendEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	type point struct {
		income  float64
		expense float64
	}
	byMonth := make(map[string]*point)
	months := []string{}
	for _, e := range entries {
		p, ok := byMonth[e.Month]
		if !ok {
			p = &point{}
			byMonth[e.Month] = p
			months = append(months, e.Month)
		}
		switch e.Type {
		case core.Income:
			p.income = e.Total.Float()
		case core.Expense:
			p.expense = e.Total.Float()
		}
	}
	sort.Strings(months)

	xValues := make([]time.Time, 0, len(months))
	incomeValues := make([]float64, 0, len(months))
	expenseValues := make([]float64, 0, len(months))
	for _, m := range months {
		ts, err := time.Parse("2006-01", m)
		if err != nil {
			continue
		}
		xValues = append(xValues, ts)
		incomeValues = append(incomeValues, byMonth[m].income)
		expenseValues = append(expenseValues, byMonth[m].expense)
	}
	if len(xValues) == 0 {
		return nil, nil
	}

	// The renderer needs at least two points per series
	if len(xValues) == 1 {
		xValues = append(xValues, xValues[0].AddDate(0, 1, 0))
		incomeValues = append(incomeValues, incomeValues[0])
		expenseValues = append(expenseValues, expenseValues[0])
	}

	graph := chart.Chart{
		Width:  1200,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.2f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Income",
				XValues: xValues,
				YValues: incomeValues,
				Style: chart.Style{
					StrokeColor: chart.ColorGreen,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Expenses",
				XValues: xValues,
				YValues: expenseValues,
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					StrokeWidth: 2,
				},
			},
		},
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, chart.Style{
			FontSize:  12,
			FontColor: chart.ColorBlack,
		}),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render monthly trend chart: %w", err)
	}
	return buffer.Bytes(), nil
}
