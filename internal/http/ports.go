package http

import (
	"context"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Store is the persistence surface the handlers need. *storage.SQLiteRepository
// implements it.
type Store interface {
	CreateTransaction(ctx context.Context, t core.Transaction, tagNames []string) (core.Transaction, error)
	GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, int, error)
	UpdateTransaction(ctx context.Context, ownerID, id string, upd storage.TransactionUpdate) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id string) ([]core.Attachment, error)

	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
	ListCategories(ctx context.Context, ownerID string, rootsOnly bool) ([]core.Category, error)
	UpdateCategory(ctx context.Context, ownerID, id string, upd storage.CategoryUpdate) (core.Category, error)
	DeleteCategory(ctx context.Context, ownerID, id string, cascade bool) error
	CategoryStatistics(ctx context.Context, ownerID, id string, start, end *time.Time) (core.CategoryStatistics, error)

	ListTags(ctx context.Context, ownerID string) ([]core.Tag, error)

	CreateAttachment(ctx context.Context, ownerID string, a core.Attachment) (core.Attachment, error)
	GetAttachment(ctx context.Context, ownerID, id string) (core.Attachment, error)
	ListAttachments(ctx context.Context, ownerID, transactionID string) ([]core.Attachment, error)
	DeleteAttachment(ctx context.Context, ownerID, id string) (core.Attachment, error)

	Ping(ctx context.Context) error
}

// CleanupPublisher schedules blob removal for deleted attachments. Optional;
// without one the server deletes blobs inline.
type CleanupPublisher interface {
	PublishCleanup(ctx context.Context, msg *amqp.CleanupMessage) error
}
