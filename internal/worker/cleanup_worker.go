package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/blob"
)

// CleanupWorker deletes attachment blobs whose database rows are gone. It is
// fed by AMQP cleanup messages published on attachment and transaction
// deletes.
type CleanupWorker struct {
	backends map[string]blob.Backend
}

func NewCleanupWorker(backends ...blob.Backend) *CleanupWorker {
	byKind := make(map[string]blob.Backend, len(backends))
	for _, b := range backends {
		byKind[b.Kind()] = b
	}
	return &CleanupWorker{backends: byKind}
}

// HandleCleanupMessage processes a single blob cleanup message. An unknown
// storage type or empty ref is a permanent failure; the delivery must not be
// requeued for those.
func (w *CleanupWorker) HandleCleanupMessage(ctx context.Context, msg *amqp.CleanupMessage) error {
	slog.InfoContext(ctx, "Processing cleanup message",
		"attachment_id", msg.AttachmentID,
		"storage_type", msg.StorageType)

	if msg.StorageRef == "" {
		slog.WarnContext(ctx, "Cleanup message without storage ref, skipping",
			"attachment_id", msg.AttachmentID)
		return nil
	}

	backend, ok := w.backends[msg.StorageType]
	if !ok {
		slog.WarnContext(ctx, "No backend for storage type, skipping",
			"attachment_id", msg.AttachmentID,
			"storage_type", msg.StorageType)
		return nil
	}

	if err := backend.Delete(ctx, msg.StorageRef); err != nil {
		return fmt.Errorf("delete blob %s: %w", msg.StorageRef, err)
	}

	slog.InfoContext(ctx, "Blob removed",
		"attachment_id", msg.AttachmentID,
		"storage_type", msg.StorageType)
	return nil
}
