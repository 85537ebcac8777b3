package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"500", 50000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{50000, "500.00"},
		{45005, "450.05"},
		{-50, "-0.50"},
		{0, "0.00"},
		{9, "0.09"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("Cents=%d expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 45000})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "450.00" {
		t.Fatalf("expected 450.00, got %s", b)
	}

	var m Money
	if err := json.Unmarshal([]byte("450.00"), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Cents != 45000 {
		t.Fatalf("expected 45000 cents, got %d", m.Cents)
	}

	if err := json.Unmarshal([]byte("0.00"), &m); err != nil {
		t.Fatalf("unmarshal zero: %v", err)
	}
	if m.Cents != 0 {
		t.Fatalf("expected 0 cents, got %d", m.Cents)
	}

	if err := json.Unmarshal([]byte("-12.34"), &m); err != nil {
		t.Fatalf("unmarshal negative: %v", err)
	}
	if m.Cents != -1234 {
		t.Fatalf("expected -1234 cents, got %d", m.Cents)
	}
}
