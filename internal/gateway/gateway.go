// Package gateway is the backend the browse and submission flows talk to:
// item listing and search, item writes, photo objects, reference data and
// the new-item channel, all over SQLite.
package gateway

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/erazemk/achados/internal/cache"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/realtime"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// SearchLimit caps the number of search results.
	SearchLimit = 50
	// searchCandidates bounds how many OPEN items are scored per search.
	searchCandidates = 2000

	referenceTTL = 10 * time.Minute
)

// Filters narrows listings. Zero values mean "any". Building and Lat/Lng only
// influence search ranking.
type Filters struct {
	Status   model.ItemStatus
	Type     model.ItemType
	Campus   string
	Category string
	Building string
	Lat, Lng *float64
	Limit    int
	Offset   int
}

func (f Filters) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	}
	return f.Limit
}

// cacheKey names the cached page for f at cache generation gen.
func (f Filters) cacheKey(gen uint64) string {
	return cache.Key("items", strconv.FormatUint(gen, 10),
		string(f.Status), string(f.Type), f.Campus, strings.ToLower(f.Category),
		strconv.Itoa(f.limit()), strconv.Itoa(max(f.Offset, 0)),
	)
}

// Local implements the gateway over a local database.
type Local struct {
	db        *sql.DB
	items     cache.ItemCache
	broker    realtime.Broker
	refs      *gocache.Cache
	publicURL string
	log       *slog.Logger

	// gen changes on every write, so a list read before a write is never
	// cached under the key later reads use.
	gen atomic.Uint64

	now   func() time.Time
	newID func() string
}

// Option configures a Local gateway.
type Option func(*Local)

// WithClock replaces the time source used for timestamps and scoring.
func WithClock(now func() time.Time) Option {
	return func(l *Local) { l.now = now }
}

// WithIDs replaces the item ID generator.
func WithIDs(newID func() string) Option {
	return func(l *Local) { l.newID = newID }
}

// New creates a gateway. A nil itemCache disables list caching. publicURL is
// the externally visible base URL photo links are built from.
func New(db *sql.DB, itemCache cache.ItemCache, broker realtime.Broker, publicURL string, log *slog.Logger, opts ...Option) *Local {
	if itemCache == nil {
		itemCache = cache.Nop{}
	}
	l := &Local{
		db:        db,
		items:     itemCache,
		broker:    broker,
		refs:      gocache.New(referenceTTL, 2*referenceTTL),
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log.With("service", "gateway"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) invalidate(ctx context.Context) {
	l.gen.Add(1)
	if err := l.items.Invalidate(ctx); err != nil {
		l.log.Warn("item cache invalidation failed", "error", err)
	}
}
