package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erazemk/achados/internal/gateway"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/store"
)

// ReportWindow is the period covered by the staff activity report.
const ReportWindow = 24 * time.Hour

// StaffHandler handles staff-only endpoints.
type StaffHandler struct {
	DB      *sql.DB
	Gateway *gateway.Local
}

type resolveRequest struct {
	Reason string `json:"reason"`
}

type receiveRequest struct {
	Notes string `json:"notes"`
}

type receiveResponse struct {
	ItemID     string      `json:"item_id"`
	ItemURL    string      `json:"item_url"`
	ReceivedAt time.Time   `json:"received_at"`
	Item       *model.Item `json:"item"`
}

// Report handles GET /api/staff/report. An optional campus narrows it.
func (h *StaffHandler) Report(w http.ResponseWriter, r *http.Request) {
	campus := strings.TrimSpace(r.URL.Query().Get("campus"))
	report, err := store.ActivityReport(r.Context(), h.DB, time.Now().Add(-ReportWindow), "last_24h", campus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// Receive handles POST /api/staff/items/{id}/receive.
func (h *StaffHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if utf8.RuneCountInString(req.Notes) > 1000 {
		writeError(w, r, model.NewValidationError("notes", "max 1000 characters"))
		return
	}

	claims := GetClaims(r.Context())
	item, err := h.Gateway.ReceiveItem(r.Context(), r.PathValue("id"), claims.UserID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item received at desk", "id", item.ID, "by", claims.Username)
	jsonResponse(w, http.StatusOK, receiveResponse{
		ItemID:     item.ID,
		ItemURL:    h.Gateway.ItemURL(item.ID),
		ReceivedAt: item.Receipt.ReceivedAt,
		Item:       item,
	})
}

// Resolve handles POST /api/staff/items/{id}/resolve.
func (h *StaffHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	item, err := h.Gateway.ResolveItem(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item resolved", "id", item.ID, "reason", item.ResolvedReason, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, item)
}
