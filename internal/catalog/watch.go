package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/achados/internal/model"
)

// Watch reloads the snapshot whenever a new item is announced on campus
// (every campus when empty). Bursts of announcements collapse into one
// reload. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, campus string) error {
	pending := make(chan struct{}, 1)
	sub, err := s.gw.SubscribeNewItems(campus, func(item model.Item) {
		s.log.Debug("new item announced", "item_id", item.ID, "campus", item.Campus)
		select {
		case pending <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to new items: %w", err)
	}
	defer func() {
		if err := s.gw.Unsubscribe(sub); err != nil {
			s.log.Warn("unsubscribe failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pending:
			if err := s.Reload(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("reload after new item failed", "error", err)
			}
		}
	}
}

// Run reloads the snapshot every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("periodic reload failed", "error", err)
			}
		}
	}
}
