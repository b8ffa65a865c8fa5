package model

import (
	"strings"
	"time"
)

// ItemType tells whether the reporter lost or found the object.
type ItemType string

const (
	ItemTypeLost  ItemType = "LOST"
	ItemTypeFound ItemType = "FOUND"
)

func (t ItemType) String() string { return string(t) }

func (t ItemType) IsValid() bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// ParseItemType accepts the upper- or lower-case form ("lost", "FOUND").
func ParseItemType(s string) (ItemType, bool) {
	t := ItemType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// ItemStatus is the lifecycle state of a report.
type ItemStatus string

const (
	ItemStatusOpen     ItemStatus = "OPEN"
	ItemStatusResolved ItemStatus = "RESOLVED"
	ItemStatusExpired  ItemStatus = "EXPIRED"
)

func (s ItemStatus) String() string { return string(s) }

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusOpen, ItemStatusResolved, ItemStatusExpired:
		return true
	}
	return false
}

// Item is a single lost or found report.
type Item struct {
	ID          string     `json:"id"`
	OwnerID     int64      `json:"owner_id,omitempty"`
	Type        ItemType   `json:"type"`
	Status      ItemStatus `json:"status"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory,omitempty"`
	Color       string     `json:"color"`
	Brand       string     `json:"brand,omitempty"`
	Tags        []string   `json:"tags"`
	Campus      string     `json:"campus"`
	Building    string     `json:"building"`
	Spot        string     `json:"spot,omitempty"`
	Geo         *Geo       `json:"geo,omitempty"`

	ContactName  string `json:"contact_name,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`

	ResolvedReason string     `json:"resolved_reason,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	Receipt *Receipt `json:"receipt,omitempty"`

	Photos    []Photo   `json:"photos"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Receipt records that staff took the object in at the lost-and-found desk.
type Receipt struct {
	ReceivedAt time.Time `json:"received_at"`
	ReceivedBy int64     `json:"received_by"`
	Notes      string    `json:"notes,omitempty"`
}

// HideContact clears the reporter's contact details.
func (i *Item) HideContact() {
	i.ContactName, i.ContactPhone, i.ContactEmail = "", "", ""
}

// Geo is an optional map position.
type Geo struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Geohash string  `json:"geohash,omitempty"`
}

// Photo is a stored picture attached to an item.
type Photo struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// PrimaryPhoto returns the photo with the lowest position, or nil.
func (i *Item) PrimaryPhoto() *Photo {
	var primary *Photo
	for idx := range i.Photos {
		p := &i.Photos[idx]
		if primary == nil || p.Position < primary.Position {
			primary = p
		}
	}
	return primary
}

// NewItem holds the fields a reporter supplies when creating an item.
type NewItem struct {
	OwnerID        int64
	Type           ItemType
	Title          string
	Description    string
	Category       string
	Subcategory    string
	Color          string
	Brand          string
	Tags           []string
	Campus         string
	Building       string
	Spot           string
	Geo            *Geo
	ContactName    string
	ContactPhone   string
	ContactEmail   string
	IdempotencyKey string
}

// Validate checks required fields and collects all errors.
func (n NewItem) Validate() error {
	var errs []FieldError
	if !n.Type.IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "must be LOST or FOUND"})
	}
	if strings.TrimSpace(n.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "required"})
	}
	if len(n.Title) > 200 {
		errs = append(errs, FieldError{Field: "title", Message: "max 200 characters"})
	}
	if len(n.Description) > 5000 {
		errs = append(errs, FieldError{Field: "description", Message: "max 5000 characters"})
	}
	if strings.TrimSpace(n.Category) == "" {
		errs = append(errs, FieldError{Field: "category", Message: "required"})
	}
	if n.Geo != nil && (n.Geo.Lat < -90 || n.Geo.Lat > 90 || n.Geo.Lng < -180 || n.Geo.Lng > 180) {
		errs = append(errs, FieldError{Field: "geo", Message: "out of range"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ItemPatch is a partial update. Nil fields are left unchanged.
type ItemPatch struct {
	Title          *string     `json:"title,omitempty"`
	Description    *string     `json:"description,omitempty"`
	Category       *string     `json:"category,omitempty"`
	Subcategory    *string     `json:"subcategory,omitempty"`
	Color          *string     `json:"color,omitempty"`
	Brand          *string     `json:"brand,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
	Campus         *string     `json:"campus,omitempty"`
	Building       *string     `json:"building,omitempty"`
	Spot           *string     `json:"spot,omitempty"`
	Status         *ItemStatus `json:"status,omitempty"`
	ResolvedReason *string     `json:"resolved_reason,omitempty"`
}

// Validate rejects empty required fields and unknown statuses.
func (p ItemPatch) Validate() error {
	var errs []FieldError
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "must not be empty"})
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		errs = append(errs, FieldError{Field: "category", Message: "must not be empty"})
	}
	if p.Status != nil && !p.Status.IsValid() {
		errs = append(errs, FieldError{Field: "status", Message: "must be OPEN, RESOLVED or EXPIRED"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
