package gateway

import (
	"context"
	"fmt"
	"slices"

	gocache "github.com/patrickmn/go-cache"

	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/store"
)

// ListReferenceData returns the active entries of kind (campuses or
// buildings) ordered by name.
func (l *Local) ListReferenceData(ctx context.Context, kind string) ([]model.ReferenceEntry, error) {
	if v, ok := l.refs.Get(kind); ok {
		return slices.Clone(v.([]model.ReferenceEntry)), nil
	}

	var entries []model.ReferenceEntry
	switch kind {
	case model.RefCampuses:
		campuses, err := store.ListCampuses(ctx, l.db, true)
		if err != nil {
			return nil, fmt.Errorf("listing campuses: %w", err)
		}
		for _, c := range campuses {
			entries = append(entries, model.ReferenceEntry{ID: c.ID, Name: c.Name})
		}
	case model.RefBuildings:
		buildings, err := store.ListBuildings(ctx, l.db, true)
		if err != nil {
			return nil, fmt.Errorf("listing buildings: %w", err)
		}
		for _, b := range buildings {
			entries = append(entries, model.ReferenceEntry{ID: b.ID, Name: b.Name})
		}
	default:
		return nil, model.NewValidationError("kind", "must be campuses or buildings")
	}
	if entries == nil {
		entries = []model.ReferenceEntry{}
	}

	l.refs.Set(kind, entries, gocache.DefaultExpiration)
	return slices.Clone(entries), nil
}

// SetCampusActive toggles a campus and drops the cached campus list.
func (l *Local) SetCampusActive(ctx context.Context, id int64, active bool) error {
	if err := store.SetCampusActive(ctx, l.db, id, active); err != nil {
		return err
	}
	l.refs.Delete(model.RefCampuses)
	return nil
}
