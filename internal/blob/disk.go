package blob

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// DiskBackend stores blobs under a local directory, one subdirectory per
// attachment so original filenames never collide.
type DiskBackend struct {
	dir string
}

func NewDiskBackend(dir string) (*DiskBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &DiskBackend{dir: dir}, nil
}

func (b *DiskBackend) Kind() string { return core.StorageDisk }

func (b *DiskBackend) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	ref := uuid.NewString() + "/" + sanitizeName(name)

	path, err := b.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create blob subdirectory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write blob: %w", err)
	}
	return ref, nil
}

func (b *DiskBackend) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	path, err := b.resolve(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (b *DiskBackend) Delete(ctx context.Context, ref string) error {
	path, err := b.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	// Drop the per-attachment directory too; ignore failures, it may
	// simply be non-empty.
	if dir := filepath.Dir(path); dir != b.dir {
		os.Remove(dir)
	}
	return nil
}

// resolve maps a ref to an absolute path and rejects anything that would
// escape the blob directory.
func (b *DiskBackend) resolve(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, "..") || filepath.IsAbs(ref) {
		return "", fs.ErrInvalid
	}
	return filepath.Join(b.dir, filepath.FromSlash(ref)), nil
}

func sanitizeName(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "file"
	}
	return name
}
