package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/achados/internal/gateway"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/search"
	"github.com/erazemk/achados/internal/store"
)

// AlertsHandler handles a user's saved searches.
type AlertsHandler struct {
	DB      *sql.DB
	Gateway *gateway.Local
}

type createAlertRequest struct {
	QueryText string   `json:"query_text"`
	Tags      []string `json:"tags"`
	Campus    string   `json:"campus"`
	RadiusKm  *float64 `json:"radius_km"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
}

func (req createAlertRequest) validate() error {
	var errs []model.FieldError
	if strings.TrimSpace(req.QueryText) == "" && len(req.Tags) == 0 {
		errs = append(errs, model.FieldError{Field: "query_text", Message: "query text or tags required"})
	}
	if req.RadiusKm != nil {
		if *req.RadiusKm <= 0 || *req.RadiusKm > 50 {
			errs = append(errs, model.FieldError{Field: "radius_km", Message: "must be between 0 and 50"})
		}
		if req.Lat == nil || req.Lng == nil {
			errs = append(errs, model.FieldError{Field: "radius_km", Message: "needs lat and lng"})
		}
	}
	if req.Lat != nil && (*req.Lat < -90 || *req.Lat > 90) {
		errs = append(errs, model.FieldError{Field: "lat", Message: "out of range"})
	}
	if req.Lng != nil && (*req.Lng < -180 || *req.Lng > 180) {
		errs = append(errs, model.FieldError{Field: "lng", Message: "out of range"})
	}
	if len(errs) > 0 {
		return &model.ValidationError{Errors: errs}
	}
	return nil
}

// owned loads the alert in the path and checks that it belongs to the caller.
func (h *AlertsHandler) owned(r *http.Request) (*model.Alert, error) {
	id, ok := pathInt64(r, "id")
	if !ok {
		return nil, model.NewValidationError("id", "invalid alert id")
	}
	alert, err := store.GetAlert(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	claims := GetClaims(r.Context())
	if alert == nil || claims == nil || alert.UserID != claims.UserID {
		return nil, model.ErrNotFound
	}
	return alert, nil
}

// List handles GET /api/alerts.
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := store.ListAlerts(r.Context(), h.DB, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	jsonResponse(w, http.StatusOK, alerts)
}

// Create handles POST /api/alerts.
func (h *AlertsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	alert, err := store.CreateAlert(r.Context(), h.DB, model.Alert{
		UserID:    claims.UserID,
		QueryText: strings.TrimSpace(req.QueryText),
		Tags:      req.Tags,
		Campus:    strings.TrimSpace(req.Campus),
		RadiusKm:  req.RadiusKm,
		Lat:       req.Lat,
		Lng:       req.Lng,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("alert created", "id", alert.ID, "user", claims.Username)
	jsonResponse(w, http.StatusCreated, alert)
}

// Update handles PATCH /api/alerts/{id}.
func (h *AlertsHandler) Update(w http.ResponseWriter, r *http.Request) {
	alert, err := h.owned(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var p store.AlertPatch
	if err := decodeJSON(w, r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.RadiusKm != nil && (*p.RadiusKm <= 0 || *p.RadiusKm > 50) {
		writeError(w, r, model.NewValidationError("radius_km", "must be between 0 and 50"))
		return
	}

	if err := store.UpdateAlert(r.Context(), h.DB, alert.ID, p); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := store.GetAlert(r.Context(), h.DB, alert.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/alerts/{id}.
func (h *AlertsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	alert, err := h.owned(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.DeleteAlert(r.Context(), h.DB, alert.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Matches handles GET /api/alerts/{id}/matches: the alert's query run through
// search, restricted to its radius when it has one.
func (h *AlertsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	alert, err := h.owned(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := strings.TrimSpace(alert.QueryText + " " + strings.Join(alert.Tags, " "))
	items, err := h.Gateway.SearchText(r.Context(), query, gateway.Filters{
		Campus: alert.Campus,
		Lat:    alert.Lat,
		Lng:    alert.Lng,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	var area *search.Area
	if alert.RadiusKm != nil && alert.Lat != nil && alert.Lng != nil {
		a := search.NewArea(*alert.Lat, *alert.Lng, *alert.RadiusKm)
		area = &a
	}

	matches := []model.Item{}
	for _, it := range items {
		if alert.Campus != "" && it.Campus != alert.Campus {
			continue
		}
		if area != nil {
			if it.Geo == nil || !area.Contains(it.Geo.Geohash) ||
				search.Haversine(*alert.Lat, *alert.Lng, it.Geo.Lat, it.Geo.Lng) > *alert.RadiusKm {
				continue
			}
		}
		matches = append(matches, it)
	}
	jsonResponse(w, http.StatusOK, withContactFor(GetClaims(r.Context()), matches))
}
