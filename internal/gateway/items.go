package gateway

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/search"
	"github.com/erazemk/achados/internal/store"
)

// FetchItems lists items matching f, newest first, with photos attached.
func (l *Local) FetchItems(ctx context.Context, f Filters) ([]model.Item, error) {
	key := f.cacheKey(l.gen.Load())
	if items, ok, err := l.items.GetItems(ctx, key); err != nil {
		l.log.Warn("item cache read failed", "key", key, "error", err)
	} else if ok {
		return items, nil
	}

	items, err := store.ListItems(ctx, l.db, store.ItemFilter{
		Status:   f.Status,
		Type:     f.Type,
		Campus:   f.Campus,
		Category: f.Category,
		Limit:    f.limit(),
		Offset:   max(f.Offset, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching items: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}

	if err := l.items.SetItems(ctx, key, items); err != nil {
		l.log.Warn("item cache write failed", "key", key, "error", err)
	}
	return items, nil
}

// GetItem returns a single item or model.ErrNotFound.
func (l *Local) GetItem(ctx context.Context, id string) (*model.Item, error) {
	item, err := store.GetItem(ctx, l.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	return item, nil
}

// SearchText ranks OPEN items against query, ignoring case and accents.
// Type and Category filter; Campus, Building and Lat/Lng boost. Items that
// share no n-gram with the query are left out.
func (l *Local) SearchText(ctx context.Context, query string, f Filters) ([]model.Item, error) {
	q := search.NewQuery(query)
	if len(q.NGrams) == 0 {
		return []model.Item{}, nil
	}
	q.Campus, q.Building = f.Campus, f.Building
	q.Lat, q.Lng = f.Lat, f.Lng

	candidates, err := store.ListIndexedItems(ctx, l.db, store.ItemFilter{
		Status:   model.ItemStatusOpen,
		Type:     f.Type,
		Category: f.Category,
	}, searchCandidates)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}

	type hit struct {
		item  model.Item
		score float64
	}
	now := l.now()
	var hits []hit
	for _, c := range candidates {
		doc := document(c)
		if len(search.SharedNGrams(doc, q)) == 0 {
			continue
		}
		hits = append(hits, hit{item: c.Item, score: search.Score(doc, q, now)})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return b.item.CreatedAt.Compare(a.item.CreatedAt)
	})

	limit := min(f.limit(), SearchLimit)
	out := make([]model.Item, 0, min(len(hits), limit))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.item)
	}
	return out, nil
}

func document(c store.IndexedItem) search.Document {
	doc := search.Document{
		TitleN:    c.Index.TitleN,
		TagsN:     c.Index.TagsN,
		NGrams:    c.Index.NGrams,
		Campus:    c.Item.Campus,
		Building:  c.Item.Building,
		CreatedAt: c.Item.CreatedAt,
	}
	if c.Item.Geo != nil {
		lat, lng := c.Item.Geo.Lat, c.Item.Geo.Lng
		doc.Lat, doc.Lng = &lat, &lng
	}
	return doc
}

// CreateItem validates n, indexes it and stores it as OPEN. A repeated
// idempotency key returns the item created the first time. New items are
// announced on the realtime channel.
func (l *Local) CreateItem(ctx context.Context, n model.NewItem) (*model.Item, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	id := l.newID()
	item, err := store.CreateItem(ctx, l.db, id, n, indexFor(n.Title, n.Description, n.Category,
		n.Subcategory, n.Color, n.Brand, n.Tags, n.Geo), l.now())
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("creating item %s: %w", id, model.ErrNotFound)
	}
	if item.ID != id {
		l.log.Info("idempotent create replayed", "item_id", item.ID, "idempotency_key", n.IdempotencyKey)
		return item, nil
	}

	l.invalidate(ctx)
	l.publish(ctx, *item)
	l.log.Info("item created", "item_id", item.ID, "type", item.Type, "campus", item.Campus)
	return item, nil
}

func (l *Local) publish(ctx context.Context, item model.Item) {
	if l.broker == nil || item.Status != model.ItemStatusOpen {
		return
	}
	if err := l.broker.Publish(ctx, item); err != nil {
		l.log.Warn("publishing new item failed", "item_id", item.ID, "error", err)
	}
}

// UpdateItem applies p and returns the updated item. Search fields are
// rebuilt when any indexed field changes.
func (l *Local) UpdateItem(ctx context.Context, id string, p model.ItemPatch) (*model.Item, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	current, err := l.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	var idx *store.ItemIndex
	if p.Title != nil || p.Description != nil || p.Category != nil || p.Subcategory != nil ||
		p.Color != nil || p.Brand != nil || p.Tags != nil {
		next := *current
		applyText(&next, p)
		ix := indexFor(next.Title, next.Description, next.Category, next.Subcategory,
			next.Color, next.Brand, next.Tags, next.Geo)
		idx = &ix
	}

	if err := store.UpdateItem(ctx, l.db, id, p, idx, l.now()); err != nil {
		return nil, err
	}
	l.invalidate(ctx)
	return l.GetItem(ctx, id)
}

func applyText(it *model.Item, p model.ItemPatch) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&it.Title, p.Title)
	set(&it.Description, p.Description)
	set(&it.Category, p.Category)
	set(&it.Subcategory, p.Subcategory)
	set(&it.Color, p.Color)
	set(&it.Brand, p.Brand)
	if p.Tags != nil {
		it.Tags = p.Tags
	}
}

func indexFor(title, description, category, subcategory, color, brand string, tags []string, geo *model.Geo) store.ItemIndex {
	idx := store.ItemIndex{
		TitleN: search.Normalize(title),
		DescN:  search.Normalize(description),
	}
	for _, t := range tags {
		if n := search.Normalize(t); n != "" {
			idx.TagsN = append(idx.TagsN, n)
		}
	}
	fields := []string{title, description, category, subcategory, color, brand}
	idx.NGrams = search.IndexNGrams(append(fields, tags...)...)
	if geo != nil {
		idx.Geohash = search.Geohash(geo.Lat, geo.Lng, search.GeohashPrecision)
	}
	return idx
}

// ResolveItem marks an item RESOLVED with reason.
func (l *Local) ResolveItem(ctx context.Context, id, reason string) (*model.Item, error) {
	status := model.ItemStatusResolved
	reason = strings.TrimSpace(reason)
	return l.UpdateItem(ctx, id, model.ItemPatch{Status: &status, ResolvedReason: &reason})
}

// ReceiveItem records that staff took the object in at the desk. The status
// is left as it is.
func (l *Local) ReceiveItem(ctx context.Context, id string, staffID int64, notes string) (*model.Item, error) {
	if err := store.ReceiveItem(ctx, l.db, id, staffID, strings.TrimSpace(notes), l.now()); err != nil {
		return nil, err
	}
	l.invalidate(ctx)
	return l.GetItem(ctx, id)
}

// ItemURL returns the public API URL of an item.
func (l *Local) ItemURL(id string) string {
	return l.publicURL + "/api/items/" + id
}
