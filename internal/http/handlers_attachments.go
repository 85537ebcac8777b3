package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/blob"
	"fintrack/internal/core"
)

// maxUploadSize caps attachment uploads at 10 MiB.
const maxUploadSize = 10 << 20

func (s *Server) handleCreateAttachment(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "attachment storage not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	transactionID := strings.TrimSpace(r.FormValue("transactionId"))
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transactionId field")
		return
	}

	// storageType is optional; the server runs a single backend, so anything
	// else is refused rather than silently redirected.
	if st := strings.TrimSpace(r.FormValue("storageType")); st != "" && st != s.blobs.Kind() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("storage type %q not available", st))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := r.Context()
	ref, err := s.blobs.Put(ctx, header.Filename, contentType, file)
	if err != nil {
		slog.ErrorContext(ctx, "Blob upload failed", "error", err, "file_name", header.Filename)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	// The id goes into the download URL, so it is assigned before the row
	// exists.
	id := uuid.NewString()
	created, err := s.store.CreateAttachment(ctx, ownerID(r), core.Attachment{
		ID:            id,
		TransactionID: transactionID,
		FileName:      sanitizeInput(header.Filename),
		FileURL:       "/files/" + id,
		FileSize:      header.Size,
		MIMEType:      contentType,
		StorageType:   s.blobs.Kind(),
		StorageRef:    ref,
	})
	if err != nil {
		// The row never existed, so the blob has to go now.
		if delErr := s.blobs.Delete(ctx, ref); delErr != nil {
			slog.WarnContext(ctx, "Orphaned blob left behind", "error", delErr, "storage_ref", ref)
		}
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	attachments, err := s.store.ListAttachments(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attachments)
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteAttachment(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.scheduleBlobCleanup(r, deleted)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAttachment(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if s.blobs == nil || s.blobs.Kind() != a.StorageType {
		writeError(w, http.StatusNotFound, "file not available")
		return
	}

	rc, err := s.blobs.Open(r.Context(), a.StorageRef)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Blob open failed", "error", err, "attachment_id", a.ID)
		writeError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", a.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", a.FileName))
	if a.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.FileSize, 10))
	}
	io.Copy(w, rc)
}
