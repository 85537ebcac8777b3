package core

import (
	"strings"
	"testing"
	"time"
)

func validTransaction() Transaction {
	return Transaction{
		Type:        Expense,
		Amount:      Money{Cents: 1250},
		Description: "Groceries",
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		CategoryID:  "11111111-1111-1111-1111-111111111111",
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"bad type", func(tx *Transaction) { tx.Type = "TRANSFER" }},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -10} }},
		{"empty description", func(tx *Transaction) { tx.Description = "  " }},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 501) }},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }},
		{"missing category", func(tx *Transaction) { tx.CategoryID = "" }},
	}
	for _, tc := range bads {
		tx := validTransaction()
		tc.mutate(&tx)
		if err := tx.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Name: "Food", Color: "#3B82F6"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Category{
		{Name: "", Color: "#3B82F6"},
		{Name: strings.Repeat("x", 101), Color: "#3B82F6"},
		{Name: "Food", Color: "blue"},
		{Name: "Food", Color: "#3B82F"},
		{Name: "Food", Color: "#3B82F6", Description: strings.Repeat("x", 501)},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionFilterNormalize(t *testing.T) {
	f := TransactionFilter{}
	f.Normalize()
	if f.Page != 1 || f.Limit != 10 {
		t.Fatalf("expected defaults 1/10, got %d/%d", f.Page, f.Limit)
	}

	f = TransactionFilter{Page: 3, Limit: 500}
	f.Normalize()
	if f.Page != 3 || f.Limit != 100 {
		t.Fatalf("expected 3/100, got %d/%d", f.Page, f.Limit)
	}
}
