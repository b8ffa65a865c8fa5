package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/achados/internal/model"
)

// ListCampuses returns campuses ordered by name.
func ListCampuses(ctx context.Context, db *sql.DB, activeOnly bool) ([]model.Campus, error) {
	query := `SELECT id, name, active FROM campuses`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	rows, err := db.QueryContext(ctx, query+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing campuses: %w", err)
	}
	defer rows.Close()

	var campuses []model.Campus
	for rows.Next() {
		var c model.Campus
		if err := rows.Scan(&c.ID, &c.Name, &c.Active); err != nil {
			return nil, fmt.Errorf("scanning campus: %w", err)
		}
		campuses = append(campuses, c)
	}
	return campuses, rows.Err()
}

// ListBuildings returns buildings ordered by name.
func ListBuildings(ctx context.Context, db *sql.DB, activeOnly bool) ([]model.Building, error) {
	query := `SELECT id, campus_id, name, active FROM buildings`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	rows, err := db.QueryContext(ctx, query+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing buildings: %w", err)
	}
	defer rows.Close()

	var buildings []model.Building
	for rows.Next() {
		var b model.Building
		var campusID sql.NullInt64
		if err := rows.Scan(&b.ID, &campusID, &b.Name, &b.Active); err != nil {
			return nil, fmt.Errorf("scanning building: %w", err)
		}
		if campusID.Valid {
			b.CampusID = &campusID.Int64
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

// SetCampusActive toggles whether a campus is offered.
func SetCampusActive(ctx context.Context, db *sql.DB, id int64, active bool) error {
	_, err := db.ExecContext(ctx, `UPDATE campuses SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("updating campus: %w", err)
	}
	return nil
}
