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

// CategoryUpdate carries the mutable category fields; nil means keep. An
// empty ParentID detaches the category from its parent.
type CategoryUpdate struct {
	Name        *string
	Color       *string
	Description *string
	ParentID    *string
}

const categoryColumns = "id, user_id, name, color, description, parent_id"

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ParentID != "" {
		if err := categoryOwned(ctx, r.db, c.OwnerID, c.ParentID); err != nil {
			return core.Category{}, err
		}
	}

	c.ID = uuid.NewString()
	now := formatTime(time.Now())

	var parent any
	if c.ParentID != "" {
		parent = c.ParentID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, color, description, parent_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Color, c.Description, parent, now, now)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name, "parent_id", c.ParentID)
	return c, nil
}

// GetCategory returns the category with its direct subcategories.
func (r *SQLiteRepository) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ? AND user_id = ?", id, ownerID)

	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, ErrNotFound
		}
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}

	children, err := r.childCategories(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	c.Subcategories = children
	return c, nil
}

// ListCategories returns the owner's categories sorted by name. With
// rootsOnly set, only top-level categories are returned, each carrying its
// subcategory tree.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string, rootsOnly bool) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? ORDER BY name", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	all := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	if !rootsOnly {
		return all, nil
	}
	return buildTree(all), nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, ownerID, id string, upd CategoryUpdate) (core.Category, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now())}
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *upd.Color)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.ParentID != nil {
		if *upd.ParentID == id {
			return core.Category{}, fmt.Errorf("category cannot be its own parent")
		}
		var parent any
		if *upd.ParentID != "" {
			if err := categoryOwned(ctx, r.db, ownerID, *upd.ParentID); err != nil {
				return core.Category{}, err
			}
			parent = *upd.ParentID
		}
		sets = append(sets, "parent_id = ?")
		args = append(args, parent)
	}
	args = append(args, id, ownerID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n == 0 {
		return core.Category{}, ErrNotFound
	}

	return r.GetCategory(ctx, ownerID, id)
}

// DeleteCategory removes a category. A category with transactions can never
// be deleted. A category with subcategories is only deleted when cascade is
// set, and the cascade fails if any subcategory has transactions. Everything
// happens in one database transaction.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, id string, cascade bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := categoryOwned(ctx, tx, ownerID, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return ErrNotFound
		}
		return err
	}

	count, err := transactionCount(ctx, tx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	childIDs, err := childCategoryIDs(ctx, tx, id)
	if err != nil {
		return err
	}
	if len(childIDs) > 0 {
		if !cascade {
			return ErrCategoryHasChildren
		}
		for _, childID := range childIDs {
			n, err := transactionCount(ctx, tx, childID)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrCategoryInUse
			}
		}
		// Grandchildren become top-level categories.
		if _, err := tx.ExecContext(ctx,
			"UPDATE categories SET parent_id = NULL WHERE parent_id IN ("+placeholders(len(childIDs))+")",
			toAnySlice(childIDs)...); err != nil {
			return fmt.Errorf("detach grandchildren: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM categories WHERE id IN ("+placeholders(len(childIDs))+")",
			toAnySlice(childIDs)...); err != nil {
			return fmt.Errorf("delete subcategories: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND user_id = ?", id, ownerID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id, "cascade", cascade, "subcategories", len(childIDs))
	return nil
}

func (r *SQLiteRepository) CategoriesByIDs(ctx context.Context, ownerID string, ids []string) (map[string]core.Category, error) {
	out := make(map[string]core.Category)
	if len(ids) == 0 {
		return out, nil
	}

	seen := make(map[string]bool)
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	args := append(toAnySlice(unique), ownerID)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id IN ("+placeholders(len(unique))+") AND user_id = ?",
		args...)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// CategoryStatistics sums the category's transactions over an optional period.
func (r *SQLiteRepository) CategoryStatistics(ctx context.Context, ownerID, id string, start, end *time.Time) (core.CategoryStatistics, error) {
	if err := categoryOwned(ctx, r.db, ownerID, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return core.CategoryStatistics{}, ErrNotFound
		}
		return core.CategoryStatistics{}, err
	}

	query := `SELECT type, COALESCE(SUM(amount_cents), 0), COUNT(*)
		 FROM transactions WHERE user_id = ? AND category_id = ?`
	args := []any{ownerID, id}
	if start != nil {
		query += " AND date >= ?"
		args = append(args, formatTime(*start))
	}
	if end != nil {
		query += " AND date <= ?"
		args = append(args, formatTime(*end))
	}
	query += " GROUP BY type"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return core.CategoryStatistics{}, fmt.Errorf("category statistics: %w", err)
	}
	defer rows.Close()

	var stats core.CategoryStatistics
	for rows.Next() {
		var (
			typ   string
			cents int64
			count int
		)
		if err := rows.Scan(&typ, &cents, &count); err != nil {
			return core.CategoryStatistics{}, fmt.Errorf("scan statistics: %w", err)
		}
		switch core.TransactionType(typ) {
		case core.Income:
			stats.TotalIncome.Cents = cents
		case core.Expense:
			stats.TotalExpense.Cents = cents
		}
		stats.TransactionCount += count
	}
	return stats, rows.Err()
}

func (r *SQLiteRepository) childCategories(ctx context.Context, parentID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE parent_id = ? ORDER BY name", parentID)
	if err != nil {
		return nil, fmt.Errorf("load subcategories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func childCategoryIDs(ctx context.Context, q queryer, parentID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT id FROM categories WHERE parent_id = ?", parentID)
	if err != nil {
		return nil, fmt.Errorf("load subcategory ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subcategory id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func transactionCount(ctx context.Context, q queryer, categoryID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE category_id = ?", categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category transactions: %w", err)
	}
	return n, nil
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c      core.Category
		parent sql.NullString
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Color, &c.Description, &parent)
	if err != nil {
		return core.Category{}, err
	}
	c.ParentID = parent.String
	return c, nil
}

// buildTree nests categories under their parents and returns the roots. A
// child whose parent is missing from the set is treated as a root. Input
// order (name ascending) is preserved at every level.
func buildTree(all []core.Category) []core.Category {
	present := make(map[string]bool, len(all))
	for _, c := range all {
		present[c.ID] = true
	}

	roots := []core.Category{}
	children := make(map[string][]core.Category)
	for _, c := range all {
		if c.ParentID == "" || !present[c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[c.ParentID] = append(children[c.ParentID], c)
	}

	var attach func(c *core.Category)
	attach = func(c *core.Category) {
		c.Subcategories = children[c.ID]
		for i := range c.Subcategories {
			attach(&c.Subcategories[i])
		}
	}
	for i := range roots {
		attach(&roots[i])
	}
	return roots
}
