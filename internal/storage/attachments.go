package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const attachmentColumns = "id, transaction_id, file_name, file_url, file_size, mime_type, storage_type, storage_ref, created_at"

// CreateAttachment records an uploaded file against a transaction the owner
// holds. The blob itself is already in place when this runs.
func (r *SQLiteRepository) CreateAttachment(ctx context.Context, ownerID string, a core.Attachment) (core.Attachment, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM transactions WHERE id = ? AND user_id = ?", a.TransactionID, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Attachment{}, ErrNotFound
	}
	if err != nil {
		return core.Attachment{}, fmt.Errorf("check transaction: %w", err)
	}

	// The handler pre-assigns the id when the file URL has to embed it.
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO attachments (id, transaction_id, file_name, file_url, file_size, mime_type, storage_type, storage_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TransactionID, a.FileName, a.FileURL, a.FileSize, a.MIMEType,
		a.StorageType, a.StorageRef, formatTime(a.CreatedAt))
	if err != nil {
		return core.Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}

	slog.InfoContext(ctx, "Attachment created",
		"id", a.ID,
		"transaction_id", a.TransactionID,
		"file_name", a.FileName,
		"storage_type", a.StorageType)
	return a, nil
}

func (r *SQLiteRepository) GetAttachment(ctx context.Context, ownerID, id string) (core.Attachment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT a.id, a.transaction_id, a.file_name, a.file_url, a.file_size, a.mime_type, a.storage_type, a.storage_ref, a.created_at
		 FROM attachments a
		 JOIN transactions t ON t.id = a.transaction_id
		 WHERE a.id = ? AND t.user_id = ?`, id, ownerID)

	a, err := scanAttachment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Attachment{}, ErrNotFound
		}
		return core.Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAttachments(ctx context.Context, ownerID, transactionID string) ([]core.Attachment, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM transactions WHERE id = ? AND user_id = ?", transactionID, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check transaction: %w", err)
	}

	byTx, err := r.attachmentsFor(ctx, r.db, []string{transactionID})
	if err != nil {
		return nil, err
	}
	attachments := byTx[transactionID]
	if attachments == nil {
		attachments = []core.Attachment{}
	}
	return attachments, nil
}

// DeleteAttachment removes the database row and returns it so the caller can
// schedule blob cleanup.
func (r *SQLiteRepository) DeleteAttachment(ctx context.Context, ownerID, id string) (core.Attachment, error) {
	a, err := r.GetAttachment(ctx, ownerID, id)
	if err != nil {
		return core.Attachment{}, err
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", a.ID); err != nil {
		return core.Attachment{}, fmt.Errorf("delete attachment: %w", err)
	}

	slog.InfoContext(ctx, "Attachment deleted", "id", a.ID, "storage_type", a.StorageType)
	return a, nil
}

func (r *SQLiteRepository) attachmentsFor(ctx context.Context, q queryer, transactionIDs []string) (map[string][]core.Attachment, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+attachmentColumns+" FROM attachments WHERE transaction_id IN ("+placeholders(len(transactionIDs))+") ORDER BY created_at",
		toAnySlice(transactionIDs)...)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]core.Attachment)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out[a.TransactionID] = append(out[a.TransactionID], a)
	}
	return out, rows.Err()
}

func scanAttachment(row rowScanner) (core.Attachment, error) {
	var (
		a       core.Attachment
		created string
	)
	err := row.Scan(&a.ID, &a.TransactionID, &a.FileName, &a.FileURL, &a.FileSize,
		&a.MIMEType, &a.StorageType, &a.StorageRef, &created)
	if err != nil {
		return core.Attachment{}, err
	}
	a.CreatedAt = parseTime(created)
	return a, nil
}
