package report

import (
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// UTF8BOM is prepended to CSV downloads so spreadsheet applications detect
// the encoding and render accented characters correctly. It belongs to the
// HTTP boundary, not to GenerateCSV itself.
const UTF8BOM = "\uFEFF"

// Field is one key/value pair of a flat CSV record. Records keep their
// fields in insertion order; the header row is the key list of the first
// record.
type Field struct {
	Key   string
	Value string
}

// Record is one flat CSV row.
type Record []Field

// GenerateCSV renders records as semicolon-separated text. The format is
// deliberately non-standard for compatibility with spreadsheet tools in
// comma-as-decimal-separator locales:
//
//   - the field delimiter is a semicolon, not a comma;
//   - every value is wrapped in double quotes, with literal quotes doubled;
//   - literal semicolons inside a value are replaced with a comma, which is
//     lossy but keeps the column count stable (known limitation);
//   - rows are CRLF-terminated.
//
// An empty record list yields the empty string, without a header row.
func GenerateCSV(records []Record) string {
	if len(records) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, f := range records[0] {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(quoteField(f.Key))
	}
	for _, rec := range records {
		sb.WriteString("\r\n")
		for i, f := range rec {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(quoteField(f.Value))
		}
	}
	return sb.String()
}

func quoteField(v string) string {
	v = strings.ReplaceAll(v, `"`, `""`)
	v = strings.ReplaceAll(v, ";", ",")
	return `"` + v + `"`
}

// TransactionRecords flattens transactions into the export row shape:
// Date, Type, Amount, Description, Category.
func TransactionRecords(txs []core.Transaction) []Record {
	records := make([]Record, 0, len(txs))
	for _, t := range txs {
		categoryName := "Unknown"
		if t.Category != nil {
			categoryName = t.Category.Name
		}
		records = append(records, Record{
			{Key: "Date", Value: t.Date.UTC().Format("2006-01-02")},
			{Key: "Type", Value: string(t.Type)},
			{Key: "Amount", Value: t.Amount.String()},
			{Key: "Description", Value: t.Description},
			{Key: "Category", Value: categoryName},
		})
	}
	return records
}

// BreakdownRecords flattens a category breakdown into export rows.
func BreakdownRecords(entries []core.CategoryBreakdownEntry) []Record {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		categoryName := "Unknown"
		if e.Category != nil {
			categoryName = e.Category.Name
		}
		records = append(records, Record{
			{Key: "Category", Value: categoryName},
			{Key: "Type", Value: string(e.Type)},
			{Key: "Total", Value: e.Total.String()},
			{Key: "TransactionCount", Value: strconv.Itoa(e.Count)},
		})
	}
	return records
}
