package model

// Campus is an entry of the campus reference list.
type Campus struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Building is an entry of the building reference list.
type Building struct {
	ID       int64  `json:"id"`
	CampusID *int64 `json:"campus_id,omitempty"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

// Reference data kinds.
const (
	RefCampuses  = "campuses"
	RefBuildings = "buildings"
)

// ReferenceEntry is the kind-agnostic shape returned by reference listings.
type ReferenceEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
