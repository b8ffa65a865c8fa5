package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/achados/internal/model"
)

const alertColumns = `id, user_id, query_text, tags, campus, radius_km, lat, lng, active, created_at`

// CreateAlert stores a new active alert for a.UserID.
func CreateAlert(ctx context.Context, db *sql.DB, a model.Alert) (*model.Alert, error) {
	tags, err := json.Marshal(nonNil(a.Tags))
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO alerts (user_id, query_text, tags, campus, radius_km, lat, lng, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		a.UserID, a.QueryText, string(tags), a.Campus, a.RadiusKm, a.Lat, a.Lng,
	)
	if err != nil {
		return nil, fmt.Errorf("creating alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting alert id: %w", err)
	}
	return GetAlert(ctx, db, id)
}

// GetAlert returns an alert by ID.
func GetAlert(ctx context.Context, db *sql.DB, id int64) (*model.Alert, error) {
	row := db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting alert: %w", err)
	}
	return a, nil
}

// ListAlerts returns a user's alerts, newest first.
func ListAlerts(ctx context.Context, db *sql.DB, userID int64) ([]model.Alert, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// AlertPatch is a partial alert update.
type AlertPatch struct {
	QueryText *string  `json:"query_text,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Campus    *string  `json:"campus,omitempty"`
	RadiusKm  *float64 `json:"radius_km,omitempty"`
	Active    *bool    `json:"active,omitempty"`
}

// UpdateAlert applies the non-nil fields of p.
func UpdateAlert(ctx context.Context, db *sql.DB, id int64, p AlertPatch) error {
	set := map[string]any{}
	if p.QueryText != nil {
		set["query_text"] = *p.QueryText
	}
	if p.Tags != nil {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags: %w", err)
		}
		set["tags"] = string(tags)
	}
	if p.Campus != nil {
		set["campus"] = *p.Campus
	}
	if p.RadiusKm != nil {
		set["radius_km"] = *p.RadiusKm
	}
	if p.Active != nil {
		set["active"] = *p.Active
	}
	if len(set) == 0 {
		return nil
	}

	_, err := sq.Update("alerts").SetMap(set).Where(sq.Eq{"id": id}).RunWith(db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("updating alert: %w", err)
	}
	return nil
}

// DeleteAlert removes an alert.
func DeleteAlert(ctx context.Context, db *sql.DB, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}
	return nil
}

func scanAlert(s scanner) (*model.Alert, error) {
	a := &model.Alert{}
	var (
		tags     string
		radius   sql.NullFloat64
		lat, lng sql.NullFloat64
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.QueryText, &tags, &a.Campus, &radius, &lat, &lng, &a.Active, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	a.Tags = nonNil(a.Tags)
	if radius.Valid {
		a.RadiusKm = &radius.Float64
	}
	if lat.Valid && lng.Valid {
		a.Lat, a.Lng = &lat.Float64, &lng.Float64
	}
	return a, nil
}
