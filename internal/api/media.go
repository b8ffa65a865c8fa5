package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/achados/internal/gateway"
)

// MediaHandler serves stored photos.
type MediaHandler struct {
	Gateway *gateway.Local
}

// Photo handles GET /media/items-photos/{key...}.
func (h *MediaHandler) Photo(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Gateway.Photo(r.Context(), gateway.PhotoPrefix+r.PathValue("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}

// HealthHandler reports whether the database is reachable.
type HealthHandler struct {
	DB *sql.DB
}

// Health handles GET /api/healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
