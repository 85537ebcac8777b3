package http

import (
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type transactionListResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Total        int                `json:"total"`
	Page         int                `json:"page"`
	Limit        int                `json:"limit"`
	TotalPages   int                `json:"totalPages"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx := core.Transaction{OwnerID: ownerID(r)}
	if payload.Type != nil {
		tx.Type = core.TransactionType(*payload.Type)
	}
	if payload.Amount != nil {
		tx.Amount = core.Money{Cents: payload.Amount.cents}
	}
	if payload.Description != nil {
		tx.Description = sanitizeInput(*payload.Description)
	}
	if payload.CategoryID != nil {
		tx.CategoryID = *payload.CategoryID
	}
	if payload.Date != nil {
		date, err := parseDateParam(*payload.Date, false)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tx.Date = date
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var tags []string
	if payload.Tags != nil {
		tags = *payload.Tags
	}

	created, err := s.store.CreateTransaction(r.Context(), tx, tags)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateStats(created.OwnerID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, total, err := s.store.ListTransactions(r.Context(), ownerID(r), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	totalPages := total / filter.Limit
	if total%filter.Limit != 0 {
		totalPages++
	}
	writeJSON(w, http.StatusOK, transactionListResponse{
		Transactions: txs,
		Total:        total,
		Page:         filter.Page,
		Limit:        filter.Limit,
		TotalPages:   totalPages,
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.GetTransaction(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd storage.TransactionUpdate
	if payload.Type != nil {
		typ := core.TransactionType(*payload.Type)
		if !typ.Valid() {
			writeError(w, http.StatusBadRequest, core.ErrInvalidType.Error())
			return
		}
		upd.Type = &typ
	}
	if payload.Amount != nil {
		upd.AmountCents = &payload.Amount.cents
	}
	if payload.Description != nil {
		desc := sanitizeInput(*payload.Description)
		if desc == "" || len(desc) > 500 {
			writeError(w, http.StatusBadRequest, core.ErrEmptyDescription.Error())
			return
		}
		upd.Description = &desc
	}
	if payload.Date != nil {
		date, err := parseDateParam(*payload.Date, false)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		upd.Date = &date
	}
	if payload.CategoryID != nil {
		upd.CategoryID = payload.CategoryID
	}
	if payload.Tags != nil {
		upd.Tags = payload.Tags
	}

	updated, err := s.store.UpdateTransaction(r.Context(), ownerID(r), r.PathValue("id"), upd)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateStats(updated.OwnerID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	orphans, err := s.store.DeleteTransaction(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	for _, a := range orphans {
		s.scheduleBlobCleanup(r, a)
	}

	s.invalidateStats(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context(), ownerID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// invalidateStats drops the cached statistics for one owner.
func (s *Server) invalidateStats(owner string) {
	// Period-scoped entries age out via TTL; deleting the default key
	// covers the frequent dashboard case immediately.
	s.statsCache.Delete(statsCacheKey(owner, nil, nil))
}

func statsCacheKey(owner string, start, end *time.Time) string {
	key := owner
	if start != nil {
		key += "|s:" + start.UTC().Format(time.RFC3339)
	}
	if end != nil {
		key += "|e:" + end.UTC().Format(time.RFC3339)
	}
	return key
}

// scheduleBlobCleanup hands the blob to the AMQP worker when a publisher is
// configured, falling back to an inline delete.
func (s *Server) scheduleBlobCleanup(r *http.Request, a core.Attachment) {
	ctx := r.Context()
	if s.publisher != nil {
		msg := amqp.NewCleanupMessage(a.ID, a.StorageType, a.StorageRef)
		err := s.publisher.PublishCleanup(ctx, msg)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "Cleanup publish failed - deleting blob inline",
			"error", err,
			"attachment_id", a.ID)
	}
	if s.blobs != nil && s.blobs.Kind() == a.StorageType {
		if err := s.blobs.Delete(ctx, a.StorageRef); err != nil {
			slog.WarnContext(ctx, "Orphaned blob left behind",
				"error", err,
				"attachment_id", a.ID,
				"storage_ref", a.StorageRef)
		}
	}
}
