package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/achados/internal/auth"
	"github.com/erazemk/achados/internal/gateway"
	"github.com/erazemk/achados/internal/imaging"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/submission"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Gateway *gateway.Local
}

type createItemRequest struct {
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Subcategory  string     `json:"subcategory"`
	Color        string     `json:"color"`
	Brand        string     `json:"brand"`
	Tags         []string   `json:"tags"`
	Campus       string     `json:"campus"`
	Building     string     `json:"building"`
	Spot         string     `json:"spot"`
	Geo          *model.Geo `json:"geo"`
	ContactName  string     `json:"contact_name"`
	ContactPhone string     `json:"contact_phone"`
	ContactEmail string     `json:"contact_email"`
}

type deletePhotoRequest struct {
	URL string `json:"url"`
}

// parseFilters reads the listing query parameters shared by list and search.
func parseFilters(q url.Values) (gateway.Filters, error) {
	var (
		f    gateway.Filters
		errs []model.FieldError
	)

	if s := q.Get("status"); s != "" {
		f.Status = model.ItemStatus(strings.ToUpper(s))
		if !f.Status.IsValid() {
			errs = append(errs, model.FieldError{Field: "status", Message: "must be OPEN, RESOLVED or EXPIRED"})
		}
	}
	if s := q.Get("type"); s != "" && !strings.EqualFold(s, "all") {
		t, ok := model.ParseItemType(s)
		if !ok {
			errs = append(errs, model.FieldError{Field: "type", Message: "must be LOST or FOUND"})
		}
		f.Type = t
	}
	f.Campus = q.Get("campus")
	f.Category = q.Get("category")
	f.Building = q.Get("building")

	intParam := func(name string, dst *int, lo, hi int) {
		s := q.Get(name)
		if s == "" {
			return
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < lo || n > hi {
			errs = append(errs, model.FieldError{Field: name, Message: fmt.Sprintf("must be an integer between %d and %d", lo, hi)})
			return
		}
		*dst = n
	}
	intParam("limit", &f.Limit, 1, gateway.MaxLimit)
	intParam("offset", &f.Offset, 0, 1<<31-1)

	floatParam := func(name string, lim float64) *float64 {
		s := q.Get(name)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < -lim || v > lim {
			errs = append(errs, model.FieldError{Field: name, Message: "out of range"})
			return nil
		}
		return &v
	}
	f.Lat = floatParam("lat", 90)
	f.Lng = floatParam("lng", 180)
	if (f.Lat == nil) != (f.Lng == nil) {
		errs = append(errs, model.FieldError{Field: "lat", Message: "lat and lng must be given together"})
	}

	if len(errs) > 0 {
		return f, &model.ValidationError{Errors: errs}
	}
	return f, nil
}

// List handles GET /api/items. Only OPEN items are listed unless a status is
// given.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if f.Status == "" {
		f.Status = model.ItemStatusOpen
	}

	items, err := h.Gateway.FetchItems(r.Context(), f)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", model.ErrRemoteUnavailable, err))
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, withContactFor(GetClaims(r.Context()), items))
}

// Search handles GET /api/items/search.
func (h *ItemsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, r, model.NewValidationError("q", "required"))
		return
	}

	f, err := parseFilters(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.Gateway.SearchText(r.Context(), query, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, withContactFor(GetClaims(r.Context()), items))
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Gateway.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !seesContact(GetClaims(r.Context()), item) {
		item.HideContact()
	}
	jsonResponse(w, http.StatusOK, item)
}

// seesContact reports whether the caller may read the reporter's contact
// details: the owner and staff may.
func seesContact(claims *auth.Claims, item *model.Item) bool {
	if claims == nil {
		return false
	}
	return (item.OwnerID != 0 && item.OwnerID == claims.UserID) || model.RoleAtLeast(claims.Role, model.RoleStaff)
}

// withContactFor clears contact details on the items claims may not see.
func withContactFor(claims *auth.Claims, items []model.Item) []model.Item {
	for i := range items {
		if !seesContact(claims, &items[i]) {
			items[i].HideContact()
		}
	}
	return items
}

// Create handles POST /api/items. The Idempotency-Key header makes retries
// return the item created by the first attempt.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > 128 {
		writeError(w, r, model.NewValidationError("Idempotency-Key", "max 128 characters"))
		return
	}

	typ, _ := model.ParseItemType(req.Type)
	item, err := h.Gateway.CreateItem(r.Context(), model.NewItem{
		OwnerID:        claims.UserID,
		Type:           typ,
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Category:       strings.TrimSpace(req.Category),
		Subcategory:    strings.TrimSpace(req.Subcategory),
		Color:          strings.TrimSpace(req.Color),
		Brand:          strings.TrimSpace(req.Brand),
		Tags:           req.Tags,
		Campus:         strings.TrimSpace(req.Campus),
		Building:       strings.TrimSpace(req.Building),
		Spot:           strings.TrimSpace(req.Spot),
		Geo:            req.Geo,
		ContactName:    strings.TrimSpace(req.ContactName),
		ContactPhone:   strings.TrimSpace(req.ContactPhone),
		ContactEmail:   strings.TrimSpace(req.ContactEmail),
		IdempotencyKey: key,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item created", "id", item.ID, "type", item.Type, "user", claims.Username)
	jsonResponse(w, http.StatusCreated, item)
}

// editable loads an item and checks that the caller owns it or is staff.
func (h *ItemsHandler) editable(r *http.Request) (*model.Item, error) {
	claims := GetClaims(r.Context())
	if claims == nil {
		return nil, model.ErrUnauthorized
	}
	item, err := h.Gateway.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if item.OwnerID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleStaff) {
		return nil, fmt.Errorf("%w: not the owner of item %s", model.ErrForbidden, item.ID)
	}
	return item, nil
}

// Update handles PATCH /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, err := h.editable(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var p model.ItemPatch
	if err := decodeJSON(w, r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Gateway.UpdateItem(r.Context(), item.ID, p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item updated", "id", item.ID, "user", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, updated)
}

// UploadPhoto handles PUT /api/items/{id}/photo. The multipart field "photo"
// is stored and appended after the item's existing photos.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	item, err := h.editable(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<20))
	file, header, err := r.FormFile("photo")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, model.NewValidationError("photo", imaging.ErrTooLarge.Error()))
			return
		}
		writeError(w, r, model.NewValidationError("photo", "missing photo file"))
		return
	}
	defer file.Close()

	photoURL, err := h.Gateway.UploadPhoto(r.Context(), file, submission.UploadKey(time.Now(), header.Filename))
	if err != nil {
		writeError(w, r, err)
		return
	}

	position := 0
	for _, p := range item.Photos {
		position = max(position, p.Position+1)
	}
	if err := h.Gateway.LinkPhoto(r.Context(), item.ID, photoURL, position); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.Gateway.GetItem(r.Context(), item.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("item photo uploaded", "id", item.ID, "url", photoURL)
	jsonResponse(w, http.StatusOK, updated)
}

// DeletePhoto handles DELETE /api/items/{id}/photo with the photo URL in the
// body.
func (h *ItemsHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	item, err := h.editable(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req deletePhotoRequest
	if err := decodeJSON(w, r, &req); err != nil || req.URL == "" {
		jsonError(w, http.StatusBadRequest, "photo url required")
		return
	}
	if !slices.ContainsFunc(item.Photos, func(p model.Photo) bool { return p.URL == req.URL }) {
		jsonError(w, http.StatusNotFound, "photo not found on item")
		return
	}

	if err := h.Gateway.DeletePhoto(r.Context(), req.URL); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item photo deleted", "id", item.ID, "url", req.URL)
	w.WriteHeader(http.StatusNoContent)
}
