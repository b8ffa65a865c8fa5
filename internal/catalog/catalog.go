// Package catalog keeps the in-memory snapshot of listed items that browse
// requests filter over.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/erazemk/achados/internal/gateway"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/realtime"
)

// Gateway is the part of the backend the catalog reads from.
type Gateway interface {
	FetchItems(ctx context.Context, f gateway.Filters) ([]model.Item, error)
	SubscribeNewItems(campus string, onInsert func(model.Item)) (*realtime.Subscription, error)
	Unsubscribe(sub *realtime.Subscription) error
}

// Card is an item prepared for display.
type Card struct {
	model.Item
	PrimaryPhoto *model.Photo `json:"primary_photo,omitempty"`
	Age          string       `json:"age"`
}

// Snapshot is the last successfully loaded item list.
type Snapshot struct {
	Items    []model.Item
	LoadedAt time.Time
}

// Store holds the current snapshot. It is safe for concurrent use.
type Store struct {
	gw  Gateway
	log *slog.Logger
	now func() time.Time

	mu       sync.RWMutex
	filters  gateway.Filters
	items    []model.Item
	loadedAt time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used for load times and age labels.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store. Reload uses defaults until Load is called.
func New(gw Gateway, log *slog.Logger, defaults gateway.Filters, opts ...Option) *Store {
	s := &Store{
		gw:      gw,
		log:     log.With("service", "catalog"),
		now:     time.Now,
		filters: withDefaults(defaults),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func withDefaults(f gateway.Filters) gateway.Filters {
	if f.Status == "" {
		f.Status = model.ItemStatusOpen
	}
	return f
}

// Load fetches every item matching f (OPEN unless f says otherwise) and
// replaces the snapshot. Items are read page by page, f.Limit items at a time,
// until a short page comes back. On failure the previous snapshot is kept and
// the error wraps model.ErrRemoteUnavailable.
func (s *Store) Load(ctx context.Context, f gateway.Filters) ([]Card, error) {
	f = withDefaults(f)

	items, err := s.fetchAll(ctx, f)
	if err != nil {
		s.log.Warn("load failed, keeping previous snapshot", "error", err)
		return nil, fmt.Errorf("%w: loading items: %w", model.ErrRemoteUnavailable, err)
	}

	now := s.now()
	s.mu.Lock()
	s.filters = f
	s.items = items
	s.loadedAt = now
	s.mu.Unlock()

	s.log.Debug("snapshot loaded", "count", len(items))
	return ToCards(items, now), nil
}

// fetchAll pages through FetchItems. An item seen on an earlier page is
// skipped, since inserts between pages shift the offsets.
func (s *Store) fetchAll(ctx context.Context, f gateway.Filters) ([]model.Item, error) {
	page := pageSize(f.Limit)
	items := []model.Item{}
	seen := make(map[string]struct{})

	for offset := 0; ; offset += page {
		pf := f
		pf.Limit, pf.Offset = page, offset
		batch, err := s.gw.FetchItems(ctx, pf)
		if err != nil {
			return nil, err
		}
		for _, it := range batch {
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			items = append(items, it)
		}
		if len(batch) < page {
			return items, nil
		}
	}
}

func pageSize(limit int) int {
	if limit <= 0 || limit > gateway.MaxLimit {
		return gateway.MaxLimit
	}
	return limit
}

// Reload repeats the last Load.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.RLock()
	f := s.filters
	s.mu.RUnlock()

	_, err := s.Load(ctx, f)
	return err
}

// Snapshot returns a copy of the current items.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Items: slices.Clone(s.items), LoadedAt: s.loadedAt}
}

// Cards returns the snapshot as display cards, aged against the current time.
func (s *Store) Cards() []Card {
	snap := s.Snapshot()
	return ToCards(snap.Items, s.now())
}

// ToCards maps items to cards in order.
func ToCards(items []model.Item, now time.Time) []Card {
	cards := make([]Card, len(items))
	for i, it := range items {
		cards[i] = Card{
			Item:         it,
			PrimaryPhoto: it.PrimaryPhoto(),
			Age:          RelativeAge(it.CreatedAt, now),
		}
	}
	return cards
}

// RelativeAge labels how long ago t was: "Agora", "Há 5 min", "Há 3h",
// "Ontem" or "Há 4 dias".
func RelativeAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Agora"
	case d < time.Hour:
		return fmt.Sprintf("Há %d min", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("Há %dh", int(d/time.Hour))
	}
	days := int(d / (24 * time.Hour))
	if days == 1 {
		return "Ontem"
	}
	return fmt.Sprintf("Há %d dias", days)
}
