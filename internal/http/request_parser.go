package http

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const dateOnlyLayout = "2006-01-02"

// parseDateParam accepts a plain date or a full RFC3339 timestamp. A plain
// end-of-range date is widened to the end of that day.
func parseDateParam(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC3339", s)
	}
	return t.UTC(), nil
}

func parsePeriod(query url.Values) (start, end *time.Time, err error) {
	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		t, err := parseDateParam(v, false)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		t, err := parseDateParam(v, true)
		if err != nil {
			return nil, nil, err
		}
		end = &t
	}
	return start, end, nil
}

func parseType(query url.Values) (*core.TransactionType, error) {
	v := strings.TrimSpace(query.Get("type"))
	if v == "" {
		return nil, nil
	}
	typ := core.TransactionType(strings.ToUpper(v))
	if !typ.Valid() {
		return nil, fmt.Errorf("invalid type %q: want INCOME or EXPENSE", v)
	}
	return &typ, nil
}

func parseReportFilter(r *http.Request) (core.ReportFilter, error) {
	query := r.URL.Query()

	var f core.ReportFilter
	start, end, err := parsePeriod(query)
	if err != nil {
		return f, err
	}
	f.StartDate = start
	f.EndDate = end
	f.CategoryID = strings.TrimSpace(query.Get("categoryId"))

	typ, err := parseType(query)
	if err != nil {
		return f, err
	}
	f.Type = typ
	return f, nil
}

func parseTransactionFilter(r *http.Request) (core.TransactionFilter, error) {
	query := r.URL.Query()

	var f core.TransactionFilter
	start, end, err := parsePeriod(query)
	if err != nil {
		return f, err
	}
	f.StartDate = start
	f.EndDate = end
	f.CategoryID = strings.TrimSpace(query.Get("categoryId"))

	typ, err := parseType(query)
	if err != nil {
		return f, err
	}
	f.Type = typ

	if f.MinCents, err = parseAmountBound(query.Get("minAmount")); err != nil {
		return f, err
	}
	if f.MaxCents, err = parseAmountBound(query.Get("maxAmount")); err != nil {
		return f, err
	}

	for _, raw := range query["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Page = n
		}
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}
	f.Normalize()
	return f, nil
}

// parseAmountBound parses a filter bound in currency units. Unlike
// transaction amounts, bounds may be zero.
func parseAmountBound(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid amount bound %q", s)
	}
	cents := int64(math.Round(v * 100))
	return &cents, nil
}

// amountField accepts a JSON number or a decimal string for money input.
type amountField struct {
	cents int64
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return err
	}
	a.cents = cents
	return nil
}

// transactionPayload is the create/update body. Every field is optional so
// the same shape serves partial updates; create validates presence.
type transactionPayload struct {
	Type        *string      `json:"type"`
	Amount      *amountField `json:"amount"`
	Description *string      `json:"description"`
	Date        *string      `json:"date"`
	CategoryID  *string      `json:"categoryId"`
	Tags        *[]string    `json:"tags"`
}

type categoryPayload struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
	ParentID    *string `json:"parentId"`
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
