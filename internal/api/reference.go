package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/achados/internal/gateway"
)

// ReferenceHandler serves campus and building lists.
type ReferenceHandler struct {
	Gateway *gateway.Local
}

type campusActiveRequest struct {
	Active *bool `json:"active"`
}

// List handles GET /api/reference/{kind}.
func (h *ReferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Gateway.ListReferenceData(r.Context(), r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	jsonResponse(w, http.StatusOK, entries)
}

// SetCampusActive handles PUT /api/reference/campuses/{id} (admin only).
func (h *ReferenceHandler) SetCampusActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid campus id")
		return
	}

	var req campusActiveRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Active == nil {
		jsonError(w, http.StatusBadRequest, "active required")
		return
	}

	if err := h.Gateway.SetCampusActive(r.Context(), id, *req.Active); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("campus updated", "id", id, "active", *req.Active, "by", GetClaims(r.Context()).Username)
	w.WriteHeader(http.StatusNoContent)
}
