package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/achados/internal/model"
)

// ItemIndex holds the derived search fields stored alongside an item.
type ItemIndex struct {
	TitleN  string
	DescN   string
	TagsN   []string
	NGrams  []string
	Geohash string
}

// ItemFilter selects items by equality on the listed columns. Empty values
// are ignored.
type ItemFilter struct {
	Status   model.ItemStatus
	Type     model.ItemType
	Campus   string
	Category string
	Limit    int
	Offset   int
}

// IndexedItem is an item together with its stored search fields.
type IndexedItem struct {
	Item  model.Item
	Index ItemIndex
}

const itemColumns = `id, owner_id, type, status, title, description, category, subcategory,
	color, brand, tags, campus, building, spot, lat, lng, geohash,
	contact_name, contact_phone, contact_email, resolved_reason, resolved_at,
	received_at, received_by, receipt_notes, created_at, updated_at`

const indexColumns = `title_n, tags_n, ngrams`

func itemsQuery(columns string) sq.SelectBuilder {
	return sq.Select(columns).From("items")
}

func (f ItemFilter) apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Type != "" {
		b = b.Where(sq.Eq{"type": string(f.Type)})
	}
	if f.Campus != "" {
		b = b.Where(sq.Eq{"campus": f.Campus})
	}
	if f.Category != "" {
		b = b.Where("lower(category) = lower(?)", f.Category)
	}
	return b
}

// CreateItem inserts a new OPEN item. When n carries an idempotency key the
// same owner already used, the item created with it is returned instead.
func CreateItem(ctx context.Context, db *sql.DB, id string, n model.NewItem, idx ItemIndex, now time.Time) (*model.Item, error) {
	if n.IdempotencyKey != "" {
		existing, err := GetItemByIdempotencyKey(ctx, db, n.OwnerID, n.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	tags, err := json.Marshal(nonNil(n.Tags))
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}

	var ownerID, lat, lng, key any
	if n.OwnerID != 0 {
		ownerID = n.OwnerID
	}
	if n.Geo != nil {
		lat, lng = n.Geo.Lat, n.Geo.Lng
	}
	if n.IdempotencyKey != "" {
		key = n.IdempotencyKey
	}
	now = now.UTC()

	_, err = sq.Insert("items").
		Columns("id", "owner_id", "type", "status", "title", "description", "category", "subcategory",
			"color", "brand", "tags", "campus", "building", "spot", "lat", "lng", "geohash",
			"contact_name", "contact_phone", "contact_email",
			"title_n", "desc_n", "tags_n", "ngrams", "idempotency_key", "created_at", "updated_at").
		Values(id, ownerID, string(n.Type), string(model.ItemStatusOpen), n.Title, n.Description, n.Category, n.Subcategory,
			n.Color, n.Brand, string(tags), n.Campus, n.Building, n.Spot, lat, lng, idx.Geohash,
			n.ContactName, n.ContactPhone, n.ContactEmail,
			idx.TitleN, idx.DescN, strings.Join(idx.TagsN, "\n"), strings.Join(idx.NGrams, " "), key, now, now).
		RunWith(db).
		ExecContext(ctx)
	if err != nil {
		// A concurrent create with the same key won the race.
		if n.IdempotencyKey != "" {
			if existing, getErr := GetItemByIdempotencyKey(ctx, db, n.OwnerID, n.IdempotencyKey); getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item with its photos by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	return getItemWhere(ctx, db, sq.Eq{"id": id})
}

// GetItemByIdempotencyKey returns the item ownerID created with the given
// key. Owner 0 is the anonymous reporter.
func GetItemByIdempotencyKey(ctx context.Context, db *sql.DB, ownerID int64, key string) (*model.Item, error) {
	return getItemWhere(ctx, db, sq.And{
		sq.Eq{"idempotency_key": key},
		sq.Expr("COALESCE(owner_id, 0) = ?", ownerID),
	})
}

func getItemWhere(ctx context.Context, db *sql.DB, where sq.Sqlizer) (*model.Item, error) {
	row := itemsQuery(itemColumns).Where(where).RunWith(db).QueryRowContext(ctx)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	if err := attachPhotos(ctx, db, []*model.Item{item}); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns items matching f, newest first, with photos attached.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	b := f.apply(itemsQuery(itemColumns)).OrderBy("created_at DESC", "rowid DESC")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}

	rows, err := b.RunWith(db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	ptrs := make([]*model.Item, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	if err := attachPhotos(ctx, db, ptrs); err != nil {
		return nil, err
	}
	return items, nil
}

// ListIndexedItems returns up to limit items matching f together with their
// search fields, newest first. Photos are attached.
func ListIndexedItems(ctx context.Context, db *sql.DB, f ItemFilter, limit int) ([]IndexedItem, error) {
	b := f.apply(itemsQuery(itemColumns+", "+indexColumns)).OrderBy("created_at DESC", "rowid DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	rows, err := b.RunWith(db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexed items: %w", err)
	}
	defer rows.Close()

	var out []IndexedItem
	for rows.Next() {
		var (
			ii            IndexedItem
			tagsN, ngrams string
		)
		item, err := scanItem(rows, &ii.Index.TitleN, &tagsN, &ngrams)
		if err != nil {
			return nil, fmt.Errorf("scanning indexed item: %w", err)
		}
		ii.Item = *item
		ii.Index.TagsN = splitNonEmpty(tagsN, "\n")
		ii.Index.NGrams = strings.Fields(ngrams)
		out = append(out, ii)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing indexed items: %w", err)
	}

	ptrs := make([]*model.Item, len(out))
	for i := range out {
		ptrs[i] = &out[i].Item
	}
	if err := attachPhotos(ctx, db, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItem applies the non-nil fields of p. idx replaces the stored search
// fields when non-nil. Moving to RESOLVED stamps resolved_at; moving away
// from it clears the resolution.
func UpdateItem(ctx context.Context, db *sql.DB, id string, p model.ItemPatch, idx *ItemIndex, now time.Time) error {
	now = now.UTC()
	set := map[string]any{"updated_at": now}

	str := map[string]*string{
		"title":       p.Title,
		"description": p.Description,
		"category":    p.Category,
		"subcategory": p.Subcategory,
		"color":       p.Color,
		"brand":       p.Brand,
		"campus":      p.Campus,
		"building":    p.Building,
		"spot":        p.Spot,
	}
	for col, v := range str {
		if v != nil {
			set[col] = *v
		}
	}
	if p.Tags != nil {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags: %w", err)
		}
		set["tags"] = string(tags)
	}
	if p.ResolvedReason != nil {
		set["resolved_reason"] = *p.ResolvedReason
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
		if *p.Status == model.ItemStatusResolved {
			set["resolved_at"] = sq.Expr("COALESCE(resolved_at, ?)", now)
		} else {
			set["resolved_at"] = nil
			set["resolved_reason"] = ""
		}
	}
	if idx != nil {
		set["title_n"] = idx.TitleN
		set["desc_n"] = idx.DescN
		set["tags_n"] = strings.Join(idx.TagsN, "\n")
		set["ngrams"] = strings.Join(idx.NGrams, " ")
	}

	res, err := sq.Update("items").SetMap(set).Where(sq.Eq{"id": id}).RunWith(db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating item %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// ReceiveItem records that staffID took item id in at the desk. The item
// keeps its status.
func ReceiveItem(ctx context.Context, db *sql.DB, id string, staffID int64, notes string, now time.Time) error {
	now = now.UTC()
	res, err := sq.Update("items").
		SetMap(map[string]any{
			"received_at":   now,
			"received_by":   staffID,
			"receipt_notes": notes,
			"updated_at":    now,
		}).
		Where(sq.Eq{"id": id}).
		RunWith(db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("receiving item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("receiving item %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// ListItemsCreatedSince returns every item created at or after since, on
// campus when it is not empty.
func ListItemsCreatedSince(ctx context.Context, db *sql.DB, since time.Time, campus string) ([]model.Item, error) {
	rows, err := ItemFilter{Campus: campus}.apply(itemsQuery(itemColumns)).
		Where(sq.GtOrEq{"created_at": since.UTC()}).
		OrderBy("created_at").
		RunWith(db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing recent items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner, extra ...any) (*model.Item, error) {
	item := &model.Item{}
	var (
		ownerID    sql.NullInt64
		tags       string
		lat, lng   sql.NullFloat64
		geohash    string
		resolvedAt *time.Time
		receivedAt *time.Time
		receivedBy sql.NullInt64
		notes      string
	)
	dest := []any{
		&item.ID, &ownerID, &item.Type, &item.Status, &item.Title, &item.Description, &item.Category, &item.Subcategory,
		&item.Color, &item.Brand, &tags, &item.Campus, &item.Building, &item.Spot, &lat, &lng, &geohash,
		&item.ContactName, &item.ContactPhone, &item.ContactEmail, &item.ResolvedReason, &resolvedAt,
		&receivedAt, &receivedBy, &notes, &item.CreatedAt, &item.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	item.OwnerID = ownerID.Int64
	item.ResolvedAt = resolvedAt
	if receivedAt != nil {
		item.Receipt = &model.Receipt{ReceivedAt: *receivedAt, ReceivedBy: receivedBy.Int64, Notes: notes}
	}
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	item.Tags = nonNil(item.Tags)
	if lat.Valid && lng.Valid {
		item.Geo = &model.Geo{Lat: lat.Float64, Lng: lng.Float64, Geohash: geohash}
	}
	item.Photos = []model.Photo{}
	return item, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
