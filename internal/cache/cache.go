// Package cache holds item list results between writes.
package cache

import (
	"context"
	"strings"

	"github.com/erazemk/achados/internal/model"
)

// ItemCache stores item lists keyed by the query that produced them.
// Implementations must be safe for concurrent use.
type ItemCache interface {
	// GetItems reports whether key was present.
	GetItems(ctx context.Context, key string) ([]model.Item, bool, error)
	SetItems(ctx context.Context, key string, items []model.Item) error
	// Invalidate drops every cached list.
	Invalidate(ctx context.Context) error
}

// Key joins parts into a cache key. Empty parts are kept so that positions
// stay meaningful.
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

// Nop never stores anything.
type Nop struct{}

func (Nop) GetItems(context.Context, string) ([]model.Item, bool, error) { return nil, false, nil }
func (Nop) SetItems(context.Context, string, []model.Item) error         { return nil }
func (Nop) Invalidate(context.Context) error                             { return nil }
