// Package blob stores attachment file contents. The database keeps the
// metadata; a Backend keeps the bytes and addresses them by an opaque ref.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a ref does not resolve to a stored blob.
var ErrNotFound = errors.New("blob not found")

// Backend stores and retrieves attachment blobs.
type Backend interface {
	// Kind identifies the backend ("disk" or "drive").
	Kind() string

	// Put stores the content under a backend-chosen ref derived from name.
	Put(ctx context.Context, name, contentType string, r io.Reader) (ref string, err error)

	// Open streams a stored blob.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob is not an error, the
	// cleanup worker may retry deliveries.
	Delete(ctx context.Context, ref string) error
}
