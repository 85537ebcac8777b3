package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"fintrack/internal/core"
)

// DriveBackend stores blobs as files in a Google Drive folder. The ref is
// the Drive file ID.
type DriveBackend struct {
	svc      *gdrive.Service
	folderID string
}

// DriveConfig selects the service account credentials and target folder.
type DriveConfig struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	FolderID           string
}

func NewDriveBackend(ctx context.Context, cfg DriveConfig) (*DriveBackend, error) {
	if cfg.FolderID == "" {
		return nil, errors.New("missing Drive folder ID")
	}

	svc, err := newDriveService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DriveBackend{svc: svc, folderID: cfg.FolderID}, nil
}

// newDriveService initializes a Drive Service using Service Account
// credentials, either inline JSON or a file path. Falls back to
// GOOGLE_APPLICATION_CREDENTIALS.
func newDriveService(ctx context.Context, cfg DriveConfig) (*gdrive.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gdrive.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gdrive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	slog.InfoContext(ctx, "Google Drive service created successfully")
	return service, nil
}

func (b *DriveBackend) Kind() string { return core.StorageDrive }

func (b *DriveBackend) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	file := &gdrive.File{
		Name:    name,
		Parents: []string{b.folderID},
	}

	created, err := b.svc.Files.Create(file).
		Media(r, googleapi.ContentType(contentType)).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload to drive: %w", err)
	}

	slog.InfoContext(ctx, "Blob uploaded to Drive", "file_id", created.Id, "name", name)
	return created.Id, nil
}

func (b *DriveBackend) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	resp, err := b.svc.Files.Get(ref).Context(ctx).Download()
	if err != nil {
		if isDriveNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download from drive: %w", err)
	}
	return resp.Body, nil
}

func (b *DriveBackend) Delete(ctx context.Context, ref string) error {
	err := b.svc.Files.Delete(ref).Context(ctx).Do()
	if err != nil && !isDriveNotFound(err) {
		return fmt.Errorf("delete from drive: %w", err)
	}
	return nil
}

func isDriveNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
