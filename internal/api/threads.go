package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/achados/internal/gateway"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/store"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100
)

// ThreadsHandler handles private conversations between an item's owner and
// the users who write to them about it.
type ThreadsHandler struct {
	DB      *sql.DB
	Gateway *gateway.Local
	Now     func() time.Time
}

type messageRequest struct {
	Content string `json:"content"`
}

func (h *ThreadsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// member loads the thread in the path and checks that the caller is one of
// its two sides.
func (h *ThreadsHandler) member(r *http.Request) (*model.Thread, error) {
	id, ok := pathInt64(r, "id")
	if !ok {
		return nil, model.NewValidationError("id", "invalid thread id")
	}
	thread, err := store.GetThread(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, model.ErrNotFound
	}
	if !thread.HasMember(GetClaims(r.Context()).UserID) {
		return nil, model.ErrForbidden
	}
	return thread, nil
}

// Open handles POST /api/items/{id}/threads. It returns the caller's thread
// with the item's owner, creating it on first contact.
func (h *ThreadsHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	item, err := h.Gateway.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item.OwnerID == 0 {
		jsonError(w, http.StatusConflict, "item was reported anonymously")
		return
	}
	if item.OwnerID == claims.UserID {
		writeError(w, r, model.NewValidationError("id", "cannot open a thread on your own item"))
		return
	}

	thread, created, err := store.OpenThread(r.Context(), h.DB, item.ID, item.OwnerID, claims.UserID, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		slog.Info("thread opened", "id", thread.ID, "item", item.ID, "user", claims.Username)
	}
	jsonResponse(w, status, thread)
}

// List handles GET /api/threads. Staff may pass mine=false to see every
// thread.
func (h *ThreadsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	userID := claims.UserID
	if v := r.URL.Query().Get("mine"); v != "" {
		mine, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, model.NewValidationError("mine", "must be true or false"))
			return
		}
		if !mine {
			if !model.RoleAtLeast(claims.Role, model.RoleStaff) {
				writeError(w, r, model.ErrForbidden)
				return
			}
			userID = 0
		}
	}

	threads, err := store.ListThreads(r.Context(), h.DB, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, threads)
}

// Messages handles GET /api/threads/{id}/messages, newest first.
func (h *ThreadsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	thread, err := h.member(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := defaultMessageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxMessageLimit {
			writeError(w, r, model.NewValidationError("limit", "must be between 1 and 100"))
			return
		}
		limit = n
	}

	messages, err := store.ListMessages(r.Context(), h.DB, thread.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, messages)
}

// Send handles POST /api/threads/{id}/messages.
func (h *ThreadsHandler) Send(w http.ResponseWriter, r *http.Request) {
	thread, err := h.member(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content, err := model.ValidateMessage(req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	msg, err := store.AddMessage(r.Context(), h.DB, thread.ID, claims.UserID, content, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, msg)
}
