package model

import "time"

// Alert is a saved search a user wants to follow.
type Alert struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	QueryText string    `json:"query_text"`
	Tags      []string  `json:"tags"`
	Campus    string    `json:"campus,omitempty"`
	RadiusKm  *float64  `json:"radius_km,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Report summarises activity over a time window. ResolutionRate is the
// percentage of Total that is resolved.
type Report struct {
	Period             string         `json:"period"`
	Since              time.Time      `json:"since"`
	Campus             string         `json:"campus,omitempty"`
	Total              int            `json:"total"`
	Resolved           int            `json:"resolved"`
	ResolutionRate     float64        `json:"resolution_rate"`
	AvgResolutionHours float64        `json:"avg_resolution_hours"`
	ByType             map[string]int `json:"by_type"`
}
