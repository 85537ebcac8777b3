package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// TransactionUpdate carries the mutable transaction fields; nil means keep.
type TransactionUpdate struct {
	Type        *core.TransactionType
	AmountCents *int64
	Description *string
	Date        *time.Time
	CategoryID  *string
	Tags        *[]string
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const transactionColumns = "id, user_id, type, amount_cents, description, date, category_id, created_at, updated_at"

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction, tagNames []string) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := categoryOwned(ctx, tx, t.OwnerID, t.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	t.ID = uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, type, amount_cents, description, date, category_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, string(t.Type), t.Amount.Cents, t.Description,
		formatTime(t.Date), t.CategoryID, formatTime(now), formatTime(now))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if err := replaceTags(ctx, tx, t.ID, tagNames); err != nil {
		return core.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"category_id", t.CategoryID)

	return r.GetTransaction(ctx, t.OwnerID, t.ID)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND user_id = ?", id, ownerID)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	if err := r.hydrate(ctx, ownerID, []*core.Transaction{&t}); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// ListTransactions returns the filtered page ordered by date descending plus
// the unpaginated match count. A limit of zero disables pagination.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, int, error) {
	where, args := transactionWhere(ownerID, f)

	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := "SELECT " + transactionColumns + " FROM transactions " + where +
		" ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, (f.Page-1)*f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	ptrs := make([]*core.Transaction, len(txs))
	for i := range txs {
		ptrs[i] = &txs[i]
	}
	if err := r.hydrate(ctx, ownerID, ptrs); err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, ownerID, id string, upd TransactionUpdate) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM transactions WHERE id = ? AND user_id = ?", id, ownerID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("check transaction: %w", err)
	}

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now())}
	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*upd.Type))
	}
	if upd.AmountCents != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, *upd.AmountCents)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, formatTime(*upd.Date))
	}
	if upd.CategoryID != nil {
		if err := categoryOwned(ctx, tx, ownerID, *upd.CategoryID); err != nil {
			return core.Transaction{}, err
		}
		sets = append(sets, "category_id = ?")
		args = append(args, *upd.CategoryID)
	}
	args = append(args, id, ownerID)

	_, err = tx.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	if upd.Tags != nil {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM transaction_tags WHERE transaction_id = ?", id); err != nil {
			return core.Transaction{}, fmt.Errorf("clear tags: %w", err)
		}
		if err := replaceTags(ctx, tx, id, *upd.Tags); err != nil {
			return core.Transaction{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}

	return r.GetTransaction(ctx, ownerID, id)
}

// DeleteTransaction removes the transaction and returns its attachment rows
// so the caller can schedule blob cleanup. Tag links and attachment rows go
// with it via cascade.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) ([]core.Attachment, error) {
	attachments, err := r.attachmentsFor(ctx, r.db, []string{id})
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "attachments", len(attachments[id]))
	return attachments[id], nil
}

func (r *SQLiteRepository) SumAmounts(ctx context.Context, ownerID string, typ core.TransactionType, start, end *time.Time) (int64, error) {
	query := "SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE user_id = ? AND type = ?"
	args := []any{ownerID, string(typ)}
	if start != nil {
		query += " AND date >= ?"
		args = append(args, formatTime(*start))
	}
	if end != nil {
		query += " AND date <= ?"
		args = append(args, formatTime(*end))
	}

	var sum int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum amounts: %w", err)
	}
	return sum, nil
}

func (r *SQLiteRepository) AggregationRows(ctx context.Context, ownerID string, f core.ReportFilter) ([]core.AggregationRow, error) {
	query := "SELECT date, type, category_id, amount_cents FROM transactions WHERE user_id = ?"
	args := []any{ownerID}
	if f.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, formatTime(*f.StartDate))
	}
	if f.EndDate != nil {
		query += " AND date <= ?"
		args = append(args, formatTime(*f.EndDate))
	}
	if f.CategoryID != "" {
		query += " AND category_id = ?"
		args = append(args, f.CategoryID)
	}
	if f.Type != nil {
		query += " AND type = ?"
		args = append(args, string(*f.Type))
	}
	query += " ORDER BY date"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregation rows: %w", err)
	}
	defer rows.Close()

	var out []core.AggregationRow
	for rows.Next() {
		var (
			row       core.AggregationRow
			date, typ string
		)
		if err := rows.Scan(&date, &typ, &row.CategoryID, &row.Cents); err != nil {
			return nil, fmt.Errorf("scan aggregation row: %w", err)
		}
		row.Date = parseTime(date)
		row.Type = core.TransactionType(typ)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregation rows: %w", err)
	}
	return out, nil
}

func transactionWhere(ownerID string, f core.TransactionFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{ownerID}
	if f.Type != nil {
		clauses = append(clauses, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.StartDate != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, formatTime(*f.StartDate))
	}
	if f.EndDate != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, formatTime(*f.EndDate))
	}
	if f.MinCents != nil {
		clauses = append(clauses, "amount_cents >= ?")
		args = append(args, *f.MinCents)
	}
	if f.MaxCents != nil {
		clauses = append(clauses, "amount_cents <= ?")
		args = append(args, *f.MaxCents)
	}
	if len(f.Tags) > 0 {
		clauses = append(clauses, `EXISTS (
			SELECT 1 FROM transaction_tags tt
			JOIN tags tg ON tg.id = tt.tag_id
			WHERE tt.transaction_id = transactions.id AND tg.name IN (`+placeholders(len(f.Tags))+"))")
		for _, name := range f.Tags {
			args = append(args, name)
		}
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                        core.Transaction
		typ, date, created, updated string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &typ, &t.Amount.Cents, &t.Description,
		&date, &t.CategoryID, &created, &updated)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Date = parseTime(date)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

// hydrate attaches category, tags and attachments to each transaction.
func (r *SQLiteRepository) hydrate(ctx context.Context, ownerID string, txs []*core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(txs))
	catIDs := make([]string, 0, len(txs))
	for _, t := range txs {
		ids = append(ids, t.ID)
		catIDs = append(catIDs, t.CategoryID)
	}

	categories, err := r.CategoriesByIDs(ctx, ownerID, catIDs)
	if err != nil {
		return err
	}
	tags, err := r.tagsFor(ctx, ids)
	if err != nil {
		return err
	}
	attachments, err := r.attachmentsFor(ctx, r.db, ids)
	if err != nil {
		return err
	}

	for _, t := range txs {
		if c, ok := categories[t.CategoryID]; ok {
			cat := c
			t.Category = &cat
		}
		t.Tags = tags[t.ID]
		t.Attachments = attachments[t.ID]
	}
	return nil
}

func (r *SQLiteRepository) tagsFor(ctx context.Context, transactionIDs []string) (map[string][]core.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tt.transaction_id, tg.id, tg.name FROM transaction_tags tt
		 JOIN tags tg ON tg.id = tt.tag_id
		 WHERE tt.transaction_id IN (`+placeholders(len(transactionIDs))+") ORDER BY tg.name",
		toAnySlice(transactionIDs)...)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]core.Tag)
	for rows.Next() {
		var (
			txID string
			tag  core.Tag
		)
		if err := rows.Scan(&txID, &tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out[txID] = append(out[txID], tag)
	}
	return out, rows.Err()
}

func replaceTags(ctx context.Context, q queryer, transactionID string, names []string) error {
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var tagID string
		err := q.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&tagID)
		if errors.Is(err, sql.ErrNoRows) {
			tagID = uuid.NewString()
			if _, err := q.ExecContext(ctx, "INSERT INTO tags (id, name) VALUES (?, ?)", tagID, name); err != nil {
				return fmt.Errorf("create tag %q: %w", name, err)
			}
		} else if err != nil {
			return fmt.Errorf("lookup tag %q: %w", name, err)
		}

		if _, err := q.ExecContext(ctx,
			"INSERT INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)", transactionID, tagID); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

func categoryOwned(ctx context.Context, q queryer, ownerID, categoryID string) error {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM categories WHERE id = ? AND user_id = ?", categoryID, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
