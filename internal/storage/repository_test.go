package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCategory(t *testing.T, repo *SQLiteRepository, ownerID, name, parentID string) core.Category {
	t.Helper()

	c, err := repo.CreateCategory(context.Background(), core.Category{
		OwnerID:  ownerID,
		Name:     name,
		Color:    "#3B82F6",
		ParentID: parentID,
	})
	if err != nil {
		t.Fatalf("CreateCategory(%q) error = %v", name, err)
	}
	return c
}

func mustTransaction(t *testing.T, repo *SQLiteRepository, ownerID, categoryID string, typ core.TransactionType, cents int64, date time.Time, tags ...string) core.Transaction {
	t.Helper()

	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		OwnerID:     ownerID,
		Type:        typ,
		Amount:      core.Money{Cents: cents},
		Description: "test transaction",
		Date:        date,
		CategoryID:  categoryID,
	}, tags)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	return tx
}

func TestCreateAndGetTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "Salary", "")
	date := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		OwnerID:     "user-1",
		Type:        core.Income,
		Amount:      core.Money{Cents: 50000},
		Description: "Salary payment",
		Date:        date,
		CategoryID:  cat.ID,
	}, []string{"work", "monthly", "work"})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := repo.GetTransaction(ctx, "user-1", created.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Amount.Cents != 50000 {
		t.Errorf("amount = %d, want 50000", got.Amount.Cents)
	}
	if !got.Date.Equal(date) {
		t.Errorf("date = %v, want %v", got.Date, date)
	}
	if got.Category == nil || got.Category.Name != "Salary" {
		t.Errorf("category = %+v, want Salary", got.Category)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("tags = %d, want 2 (duplicates collapsed)", len(got.Tags))
	}
	if got.Tags[0].Name != "monthly" || got.Tags[1].Name != "work" {
		t.Errorf("tags = %v, want [monthly work]", got.Tags)
	}
}

func TestCreateTransactionForeignCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	other := mustCategory(t, repo, "user-2", "Theirs", "")

	_, err := repo.CreateTransaction(ctx, core.Transaction{
		OwnerID:     "user-1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 100},
		Description: "bad",
		Date:        time.Now(),
		CategoryID:  other.ID,
	}, nil)
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("error = %v, want ErrCategoryNotFound", err)
	}
}

func TestGetTransactionScopedToOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "Food", "")
	tx := mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 500, time.Now())

	if _, err := repo.GetTransaction(ctx, "user-2", tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "user-1", "Food", "")
	salary := mustCategory(t, repo, "user-1", "Salary", "")

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	mustTransaction(t, repo, "user-1", salary.ID, core.Income, 300000, jan, "work")
	mustTransaction(t, repo, "user-1", food.ID, core.Expense, 2500, feb, "groceries")
	mustTransaction(t, repo, "user-1", food.ID, core.Expense, 9000, mar)

	tests := []struct {
		name      string
		filter    core.TransactionFilter
		wantCount int
		wantTotal int
	}{
		{"no filter", core.TransactionFilter{}, 3, 3},
		{"by type", core.TransactionFilter{Type: typePtr(core.Expense)}, 2, 2},
		{"by category", core.TransactionFilter{CategoryID: salary.ID}, 1, 1},
		{"date range", core.TransactionFilter{StartDate: &feb, EndDate: &mar}, 2, 2},
		{"amount floor", core.TransactionFilter{MinCents: int64Ptr(5000)}, 2, 2},
		{"by tag", core.TransactionFilter{Tags: []string{"groceries"}}, 1, 1},
		{"paginated", core.TransactionFilter{Page: 1, Limit: 2}, 2, 3},
		{"second page", core.TransactionFilter{Page: 2, Limit: 2}, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, total, err := repo.ListTransactions(ctx, "user-1", tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions() error = %v", err)
			}
			if len(txs) != tt.wantCount {
				t.Errorf("len = %d, want %d", len(txs), tt.wantCount)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
		})
	}

	t.Run("date descending", func(t *testing.T) {
		txs, _, err := repo.ListTransactions(ctx, "user-1", core.TransactionFilter{})
		if err != nil {
			t.Fatalf("ListTransactions() error = %v", err)
		}
		for i := 1; i < len(txs); i++ {
			if txs[i].Date.After(txs[i-1].Date) {
				t.Fatalf("transactions not in date descending order: %v before %v", txs[i-1].Date, txs[i].Date)
			}
		}
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		txs, total, err := repo.ListTransactions(ctx, "user-2", core.TransactionFilter{})
		if err != nil {
			t.Fatalf("ListTransactions() error = %v", err)
		}
		if len(txs) != 0 || total != 0 {
			t.Errorf("got %d transactions (total %d), want none", len(txs), total)
		}
	})
}

func TestUpdateTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "Food", "")
	other := mustCategory(t, repo, "user-1", "Dining", "")
	tx := mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 2500, time.Now(), "old")

	desc := "dinner out"
	cents := int64(4200)
	tags := []string{"restaurant"}
	got, err := repo.UpdateTransaction(ctx, "user-1", tx.ID, TransactionUpdate{
		Description: &desc,
		AmountCents: &cents,
		CategoryID:  &other.ID,
		Tags:        &tags,
	})
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if got.Description != desc || got.Amount.Cents != cents || got.CategoryID != other.ID {
		t.Errorf("update not applied: %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "restaurant" {
		t.Errorf("tags = %v, want [restaurant]", got.Tags)
	}

	if _, err := repo.UpdateTransaction(ctx, "user-1", "missing", TransactionUpdate{Description: &desc}); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, err := repo.UpdateTransaction(ctx, "user-2", tx.ID, TransactionUpdate{Description: &desc}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTransactionReturnsAttachments(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "Food", "")
	tx := mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 2500, time.Now())

	att, err := repo.CreateAttachment(ctx, "user-1", core.Attachment{
		TransactionID: tx.ID,
		FileName:      "receipt.pdf",
		FileURL:       "/files/receipt.pdf",
		FileSize:      1234,
		MIMEType:      "application/pdf",
		StorageType:   core.StorageDisk,
		StorageRef:    "receipt.pdf",
	})
	if err != nil {
		t.Fatalf("CreateAttachment() error = %v", err)
	}

	orphans, err := repo.DeleteTransaction(ctx, "user-1", tx.ID)
	if err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != att.ID {
		t.Fatalf("orphans = %+v, want the one attachment", orphans)
	}

	if _, err := repo.GetTransaction(ctx, "user-1", tx.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("transaction still readable after delete: %v", err)
	}
	if _, err := repo.GetAttachment(ctx, "user-1", att.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("attachment row survived the cascade: %v", err)
	}

	if _, err := repo.DeleteTransaction(ctx, "user-1", tx.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestSumAmounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "General", "")
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	mustTransaction(t, repo, "user-1", cat.ID, core.Income, 50000, jan)
	mustTransaction(t, repo, "user-1", cat.ID, core.Income, 10000, feb)
	mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 5000, jan)

	sum, err := repo.SumAmounts(ctx, "user-1", core.Income, nil, nil)
	if err != nil {
		t.Fatalf("SumAmounts() error = %v", err)
	}
	if sum != 60000 {
		t.Errorf("income sum = %d, want 60000", sum)
	}

	end := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	sum, err = repo.SumAmounts(ctx, "user-1", core.Income, nil, &end)
	if err != nil {
		t.Fatalf("SumAmounts() error = %v", err)
	}
	if sum != 50000 {
		t.Errorf("january income = %d, want 50000", sum)
	}

	sum, err = repo.SumAmounts(ctx, "user-2", core.Income, nil, nil)
	if err != nil {
		t.Fatalf("SumAmounts() error = %v", err)
	}
	if sum != 0 {
		t.Errorf("empty owner sum = %d, want 0", sum)
	}
}

func TestAggregationRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "General", "")
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	mustTransaction(t, repo, "user-1", cat.ID, core.Income, 50000, jan)
	mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 5000, jan)

	rows, err := repo.AggregationRows(ctx, "user-1", core.ReportFilter{})
	if err != nil {
		t.Fatalf("AggregationRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for _, row := range rows {
		if row.CategoryID != cat.ID {
			t.Errorf("category id = %q, want %q", row.CategoryID, cat.ID)
		}
		if !row.Date.Equal(jan) {
			t.Errorf("date = %v, want %v", row.Date, jan)
		}
	}

	typ := core.Expense
	rows, err = repo.AggregationRows(ctx, "user-1", core.ReportFilter{Type: &typ})
	if err != nil {
		t.Fatalf("AggregationRows() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Cents != 5000 {
		t.Fatalf("filtered rows = %+v, want one expense of 5000", rows)
	}
}

func TestCategoryTree(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "user-1", "Food", "")
	groceries := mustCategory(t, repo, "user-1", "Groceries", food.ID)
	mustCategory(t, repo, "user-1", "Produce", groceries.ID)
	mustCategory(t, repo, "user-1", "Transport", "")

	flat, err := repo.ListCategories(ctx, "user-1", false)
	if err != nil {
		t.Fatalf("ListCategories(flat) error = %v", err)
	}
	if len(flat) != 4 {
		t.Fatalf("flat list = %d, want 4", len(flat))
	}

	roots, err := repo.ListCategories(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("ListCategories(roots) error = %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(roots))
	}
	if roots[0].Name != "Food" || roots[1].Name != "Transport" {
		t.Fatalf("roots = [%s %s], want [Food Transport]", roots[0].Name, roots[1].Name)
	}
	if len(roots[0].Subcategories) != 1 || roots[0].Subcategories[0].Name != "Groceries" {
		t.Fatalf("Food subcategories = %+v, want [Groceries]", roots[0].Subcategories)
	}
	if len(roots[0].Subcategories[0].Subcategories) != 1 {
		t.Fatalf("Groceries subcategories = %+v, want [Produce]", roots[0].Subcategories[0].Subcategories)
	}

	got, err := repo.GetCategory(ctx, "user-1", food.ID)
	if err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if len(got.Subcategories) != 1 {
		t.Errorf("direct subcategories = %d, want 1", len(got.Subcategories))
	}
}

func TestUpdateCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "user-1", "Food", "")
	cat := mustCategory(t, repo, "user-1", "Misc", "")

	name := "Dining"
	color := "#FF0000"
	got, err := repo.UpdateCategory(ctx, "user-1", cat.ID, CategoryUpdate{
		Name:     &name,
		Color:    &color,
		ParentID: &food.ID,
	})
	if err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	if got.Name != "Dining" || got.Color != "#FF0000" || got.ParentID != food.ID {
		t.Errorf("update not applied: %+v", got)
	}

	detach := ""
	got, err = repo.UpdateCategory(ctx, "user-1", cat.ID, CategoryUpdate{ParentID: &detach})
	if err != nil {
		t.Fatalf("UpdateCategory(detach) error = %v", err)
	}
	if got.ParentID != "" {
		t.Errorf("parent id = %q, want empty after detach", got.ParentID)
	}

	if _, err := repo.UpdateCategory(ctx, "user-1", cat.ID, CategoryUpdate{ParentID: &cat.ID}); err == nil {
		t.Error("expected error when category parents itself")
	}
	if _, err := repo.UpdateCategory(ctx, "user-2", cat.ID, CategoryUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestDeleteCategoryGuards(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("with transactions", func(t *testing.T) {
		cat := mustCategory(t, repo, "user-1", "Busy", "")
		mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 100, time.Now())

		if err := repo.DeleteCategory(ctx, "user-1", cat.ID, false); !errors.Is(err, ErrCategoryInUse) {
			t.Fatalf("error = %v, want ErrCategoryInUse", err)
		}
	})

	t.Run("with children no cascade", func(t *testing.T) {
		parent := mustCategory(t, repo, "user-1", "Parent", "")
		mustCategory(t, repo, "user-1", "Child", parent.ID)

		if err := repo.DeleteCategory(ctx, "user-1", parent.ID, false); !errors.Is(err, ErrCategoryHasChildren) {
			t.Fatalf("error = %v, want ErrCategoryHasChildren", err)
		}
	})

	t.Run("cascade removes children", func(t *testing.T) {
		parent := mustCategory(t, repo, "user-1", "Cascade", "")
		child := mustCategory(t, repo, "user-1", "CascadeChild", parent.ID)

		if err := repo.DeleteCategory(ctx, "user-1", parent.ID, true); err != nil {
			t.Fatalf("DeleteCategory(cascade) error = %v", err)
		}
		if _, err := repo.GetCategory(ctx, "user-1", child.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("child survived cascade: %v", err)
		}
	})

	t.Run("cascade blocked by child transactions", func(t *testing.T) {
		parent := mustCategory(t, repo, "user-1", "Blocked", "")
		child := mustCategory(t, repo, "user-1", "BlockedChild", parent.ID)
		mustTransaction(t, repo, "user-1", child.ID, core.Expense, 100, time.Now())

		if err := repo.DeleteCategory(ctx, "user-1", parent.ID, true); !errors.Is(err, ErrCategoryInUse) {
			t.Fatalf("error = %v, want ErrCategoryInUse", err)
		}
		if _, err := repo.GetCategory(ctx, "user-1", child.ID); err != nil {
			t.Errorf("child should survive blocked cascade: %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if err := repo.DeleteCategory(ctx, "user-1", "missing", false); !errors.Is(err, ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestCategoryStatistics(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "Food", "")
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 2500, jan)
	mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 4000, feb)
	mustTransaction(t, repo, "user-1", cat.ID, core.Income, 1000, jan)

	stats, err := repo.CategoryStatistics(ctx, "user-1", cat.ID, nil, nil)
	if err != nil {
		t.Fatalf("CategoryStatistics() error = %v", err)
	}
	if stats.TotalExpense.Cents != 6500 || stats.TotalIncome.Cents != 1000 || stats.TransactionCount != 3 {
		t.Errorf("stats = %+v, want expense 6500, income 1000, count 3", stats)
	}

	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	stats, err = repo.CategoryStatistics(ctx, "user-1", cat.ID, nil, &end)
	if err != nil {
		t.Fatalf("CategoryStatistics() error = %v", err)
	}
	if stats.TotalExpense.Cents != 2500 || stats.TransactionCount != 2 {
		t.Errorf("january stats = %+v, want expense 2500, count 2", stats)
	}

	if _, err := repo.CategoryStatistics(ctx, "user-2", cat.ID, nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestListTags(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "Food", "")
	mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 1000, time.Now(), "work", "monthly")
	mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 2000, time.Now(), "work", "travel")

	otherCat := mustCategory(t, repo, "user-2", "Food", "")
	mustTransaction(t, repo, "user-2", otherCat.ID, core.Expense, 500, time.Now(), "secret")

	tags, err := repo.ListTags(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	var names []string
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	want := []string{"monthly", "travel", "work"}
	if len(names) != len(want) {
		t.Fatalf("ListTags() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListTags()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	empty, err := repo.ListTags(ctx, "user-3")
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListTags() for unknown owner = %v, want empty", empty)
	}
}

func TestAttachmentLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := mustCategory(t, repo, "user-1", "Food", "")
	tx := mustTransaction(t, repo, "user-1", cat.ID, core.Expense, 2500, time.Now())

	att, err := repo.CreateAttachment(ctx, "user-1", core.Attachment{
		TransactionID: tx.ID,
		FileName:      "receipt.jpg",
		FileURL:       "/files/abc/receipt.jpg",
		FileSize:      2048,
		MIMEType:      "image/jpeg",
		StorageType:   core.StorageDisk,
		StorageRef:    "abc/receipt.jpg",
	})
	if err != nil {
		t.Fatalf("CreateAttachment() error = %v", err)
	}

	list, err := repo.ListAttachments(ctx, "user-1", tx.ID)
	if err != nil {
		t.Fatalf("ListAttachments() error = %v", err)
	}
	if len(list) != 1 || list[0].StorageRef != "abc/receipt.jpg" {
		t.Fatalf("list = %+v, want the stored attachment with its ref", list)
	}

	if _, err := repo.GetAttachment(ctx, "user-2", att.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner error = %v, want ErrNotFound", err)
	}

	deleted, err := repo.DeleteAttachment(ctx, "user-1", att.ID)
	if err != nil {
		t.Fatalf("DeleteAttachment() error = %v", err)
	}
	if deleted.StorageType != core.StorageDisk || deleted.StorageRef != "abc/receipt.jpg" {
		t.Errorf("deleted = %+v, want storage ref preserved for cleanup", deleted)
	}

	list, err = repo.ListAttachments(ctx, "user-1", tx.ID)
	if err != nil {
		t.Fatalf("ListAttachments() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list after delete = %d, want 0", len(list))
	}

	if _, err := repo.CreateAttachment(ctx, "user-1", core.Attachment{TransactionID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing transaction error = %v, want ErrNotFound", err)
	}
}

func typePtr(t core.TransactionType) *core.TransactionType { return &t }

func int64Ptr(n int64) *int64 { return &n }
