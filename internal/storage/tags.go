package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// ListTags returns the tags attached to the owner's transactions, ordered by
// name. Tags no transaction references are not listed.
func (r *SQLiteRepository) ListTags(ctx context.Context, ownerID string) ([]core.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT t.id, t.name
		 FROM tags t
		 JOIN transaction_tags tt ON tt.tag_id = t.id
		 JOIN transactions tx ON tx.id = tt.transaction_id
		 WHERE tx.user_id = ?
		 ORDER BY t.name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []core.Tag{}
	for rows.Next() {
		var t core.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
