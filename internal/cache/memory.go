package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/erazemk/achados/internal/model"
)

// Memory is an in-process ItemCache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a Memory cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) GetItems(_ context.Context, key string) ([]model.Item, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneItems(v.([]model.Item)), true, nil
}

func (m *Memory) SetItems(_ context.Context, key string, items []model.Item) error {
	m.c.Set(key, cloneItems(items), gocache.DefaultExpiration)
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.c.Flush()
	return nil
}

// cloneItems copies the slices callers could mutate so cached entries stay
// untouched.
func cloneItems(items []model.Item) []model.Item {
	if items == nil {
		return nil
	}
	out := make([]model.Item, len(items))
	for i, it := range items {
		it.Tags = append([]string(nil), it.Tags...)
		it.Photos = append([]model.Photo(nil), it.Photos...)
		out[i] = it
	}
	return out
}
