package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/erazemk/achados/internal/imaging"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/submission"
)

// DefaultSessionTTL is how long an untouched submission session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Sessions keeps submission states between requests. Sessions expire after
// ttl without access.
type Sessions struct {
	cache *gocache.Cache
	ttl   time.Duration
}

type session struct {
	mu    sync.Mutex
	state submission.State
}

// NewSessions creates an empty session registry.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{cache: gocache.New(ttl, ttl), ttl: ttl}
}

func (s *Sessions) create(ownerID int64) (string, *session) {
	id := uuid.NewString()
	sess := &session{state: submission.New(ownerID)}
	s.cache.Set(id, sess, s.ttl)
	return id, sess
}

// get returns the session and extends its expiry.
func (s *Sessions) get(id string) (*session, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*session)
	s.cache.Set(id, sess, s.ttl)
	return sess, true
}

func (s *Sessions) delete(id string) {
	s.cache.Delete(id)
}

// SubmissionsHandler drives the report-an-item wizard over HTTP.
type SubmissionsHandler struct {
	Workflow *submission.Workflow
	Sessions *Sessions
}

type sessionResponse struct {
	ID string `json:"id"`
	submission.State
}

// lookup finds the session named in the path. Sessions started by a signed-in
// user are only visible to that user.
func (h *SubmissionsHandler) lookup(w http.ResponseWriter, r *http.Request) (string, *session, bool) {
	id := r.PathValue("id")
	sess, ok := h.Sessions.get(id)
	if !ok {
		jsonError(w, http.StatusNotFound, "submission not found")
		return "", nil, false
	}

	sess.mu.Lock()
	owner := sess.state.OwnerID
	sess.mu.Unlock()
	if owner != 0 {
		claims := GetClaims(r.Context())
		if claims == nil || claims.UserID != owner {
			jsonError(w, http.StatusNotFound, "submission not found")
			return "", nil, false
		}
	}
	return id, sess, true
}

// update applies fn to the session state under its lock. The state fn
// returns is kept even when it also returns an error.
func (h *SubmissionsHandler) update(w http.ResponseWriter, r *http.Request, fn func(submission.State) (submission.State, error)) {
	id, sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	sess.mu.Lock()
	next, err := fn(sess.state)
	sess.state = next
	sess.mu.Unlock()

	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, sessionResponse{ID: id, State: next})
}

// Create handles POST /api/submissions.
func (h *SubmissionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var ownerID int64
	if claims := GetClaims(r.Context()); claims != nil {
		ownerID = claims.UserID
	}
	id, sess := h.Sessions.create(ownerID)
	slog.Info("submission started", "session", id, "user_id", ownerID)
	jsonResponse(w, http.StatusCreated, sessionResponse{ID: id, State: sess.state})
}

// Get handles GET /api/submissions/{id}.
func (h *SubmissionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s submission.State) (submission.State, error) { return s, nil })
}

// SetContact handles PUT /api/submissions/{id}/contact. Valid contact data
// advances the session to the details step; invalid data is kept in the
// draft and reported field by field.
func (h *SubmissionsHandler) SetContact(w http.ResponseWriter, r *http.Request) {
	var c submission.Contact
	if err := decodeJSON(w, r, &c); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.update(w, r, func(s submission.State) (submission.State, error) {
		s, err := s.SetContact(c)
		if err != nil {
			return s, err
		}
		return s.Next()
	})
}

// SetDetails handles PUT /api/submissions/{id}/details. A JSON body replaces
// the details. A multipart body carries the details as form fields and may
// attach a file under "photo" or drop the attached one with
// remove_photo=true.
func (h *SubmissionsHandler) SetDetails(w http.ResponseWriter, r *http.Request) {
	var (
		d           submission.Details
		photo       *submission.Photo
		removePhoto bool
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var err error
		d, photo, removePhoto, err = readDetailsForm(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else if err := decodeJSON(w, r, &d); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if t, ok := model.ParseItemType(string(d.Type)); ok {
		d.Type = t
	}

	h.update(w, r, func(s submission.State) (submission.State, error) {
		s, err := s.SetDetails(d)
		if err != nil {
			return s, err
		}
		switch {
		case photo != nil:
			return s.AttachPhoto(*photo)
		case removePhoto:
			return s.DetachPhoto()
		}
		return s, nil
	})
}

func readDetailsForm(w http.ResponseWriter, r *http.Request) (submission.Details, *submission.Photo, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return submission.Details{}, nil, false, model.NewValidationError("photo", imaging.ErrTooLarge.Error())
		}
		return submission.Details{}, nil, false, model.NewValidationError("body", "invalid multipart form")
	}

	d := submission.Details{
		Type:        model.ItemType(r.FormValue("type")),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Subcategory: r.FormValue("subcategory"),
		Color:       r.FormValue("color"),
		Campus:      r.FormValue("campus"),
		Building:    r.FormValue("building"),
	}
	remove, _ := strconv.ParseBool(r.FormValue("remove_photo"))

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return d, nil, remove, nil
	}
	if err != nil {
		return d, nil, false, model.NewValidationError("photo", "unreadable file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imaging.MaxUploadBytes+1))
	if err != nil {
		return d, nil, false, fmt.Errorf("reading photo: %w", err)
	}
	return d, &submission.Photo{Filename: header.Filename, Data: data}, false, nil
}

// Submit handles POST /api/submissions/{id}/submit. The session stays locked
// for the whole submit, so a second submit on it waits and then finds the
// session already on the results step.
func (h *SubmissionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s submission.State) (submission.State, error) {
		return h.Workflow.Submit(r.Context(), s)
	})
}

// Back handles POST /api/submissions/{id}/back.
func (h *SubmissionsHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s submission.State) (submission.State, error) { return s.Back() })
}

// Restart handles POST /api/submissions/{id}/restart.
func (h *SubmissionsHandler) Restart(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s submission.State) (submission.State, error) { return s.Restart(), nil })
}

// Cancel handles DELETE /api/submissions/{id}.
func (h *SubmissionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.Sessions.delete(id)
	slog.Info("submission cancelled", "session", id)
	w.WriteHeader(http.StatusNoContent)
}
