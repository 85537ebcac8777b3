package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := core.Category{OwnerID: ownerID(r), Color: "#3B82F6"}
	if payload.Name != nil {
		c.Name = sanitizeInput(*payload.Name)
	}
	if payload.Color != nil {
		c.Color = *payload.Color
	}
	if payload.Description != nil {
		c.Description = sanitizeInput(*payload.Description)
	}
	if payload.ParentID != nil {
		c.ParentID = *payload.ParentID
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateCategory(r.Context(), c)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	rootsOnly := r.URL.Query().Get("all") != "true"

	categories, err := s.store.ListCategories(r.Context(), ownerID(r), rootsOnly)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCategory(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd storage.CategoryUpdate
	if payload.Name != nil {
		name := sanitizeInput(*payload.Name)
		if name == "" || len(name) > 100 {
			writeError(w, http.StatusBadRequest, core.ErrEmptyName.Error())
			return
		}
		upd.Name = &name
	}
	if payload.Color != nil {
		probe := core.Category{Name: "probe", Color: *payload.Color}
		if err := probe.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, core.ErrInvalidColor.Error())
			return
		}
		upd.Color = payload.Color
	}
	if payload.Description != nil {
		desc := sanitizeInput(*payload.Description)
		upd.Description = &desc
	}
	if payload.ParentID != nil {
		upd.ParentID = payload.ParentID
	}

	updated, err := s.store.UpdateCategory(r.Context(), ownerID(r), r.PathValue("id"), upd)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	cascade := r.URL.Query().Get("cascade") == "true"

	if err := s.store.DeleteCategory(r.Context(), ownerID(r), r.PathValue("id"), cascade); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategoryStatistics(w http.ResponseWriter, r *http.Request) {
	start, end, err := parsePeriod(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.store.CategoryStatistics(r.Context(), ownerID(r), r.PathValue("id"), start, end)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
