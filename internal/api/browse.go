package api

import (
	"net/http"
	"time"

	"github.com/erazemk/achados/internal/catalog"
	"github.com/erazemk/achados/internal/filter"
	"github.com/erazemk/achados/internal/model"
)

// BrowseHandler serves the filtered catalog snapshot.
type BrowseHandler struct {
	Catalog *catalog.Store
	Now     func() time.Time
}

type browseResponse struct {
	Items         []catalog.Card `json:"items"`
	Count         int            `json:"count"`
	ActiveFilters int            `json:"active_filters"`
	Filters       filter.State   `json:"filters"`
	LoadedAt      time.Time      `json:"loaded_at"`
}

// Browse handles GET /api/browse.
func (h *BrowseHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sort, ok := filter.ParseSort(q.Get("sort"))
	if !ok {
		writeError(w, r, model.NewValidationError("sort", "must be recent or relevant"))
		return
	}
	state := filter.State{
		Query:    q.Get("q"),
		Campus:   q.Get("campus"),
		Category: q.Get("category"),
		Type:     q.Get("type"),
		Sort:     sort,
	}

	snap := h.Catalog.Snapshot()
	if snap.LoadedAt.IsZero() {
		if err := h.Catalog.Reload(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		snap = h.Catalog.Snapshot()
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	res := filter.Apply(snap.Items, state)
	jsonResponse(w, http.StatusOK, browseResponse{
		Items:         catalog.ToCards(withContactFor(GetClaims(r.Context()), res.Items), now()),
		Count:         res.Count,
		ActiveFilters: state.ActiveCount(),
		Filters:       state,
		LoadedAt:      snap.LoadedAt,
	})
}
