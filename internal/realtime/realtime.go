// Package realtime announces newly created items to interested listeners.
// Delivery is fire-and-forget: there is no replay and slow listeners miss
// events.
package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/erazemk/achados/internal/model"
)

// ErrClosed is returned by a Broker after Close.
var ErrClosed = errors.New("realtime: broker closed")

// Broker publishes new items and fans them out to subscribers.
type Broker interface {
	Publish(ctx context.Context, item model.Item) error
	// Subscribe calls fn for each new item on campus. An empty campus
	// receives items from every campus.
	Subscribe(campus string, fn func(model.Item)) (*Subscription, error)
	Close() error
}

// Subscription is a live registration returned by Subscribe.
type Subscription struct {
	Campus string

	once   sync.Once
	cancel func() error
	err    error
}

func newSubscription(campus string, cancel func() error) *Subscription {
	return &Subscription{Campus: campus, cancel: cancel}
}

// Unsubscribe stops delivery. Calling it more than once is a no-op. It must
// not be called from inside the subscriber's own callback.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		if s.cancel != nil {
			s.err = s.cancel()
		}
	})
	return s.err
}
