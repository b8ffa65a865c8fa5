package gateway

import (
	"errors"

	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/realtime"
)

// ErrNoRealtime is returned when the gateway was built without a broker.
var ErrNoRealtime = errors.New("realtime channel not configured")

// SubscribeNewItems calls onInsert for every OPEN item created on campus
// (every campus when empty).
func (l *Local) SubscribeNewItems(campus string, onInsert func(model.Item)) (*realtime.Subscription, error) {
	if l.broker == nil {
		return nil, ErrNoRealtime
	}
	return l.broker.Subscribe(campus, onInsert)
}

// Unsubscribe cancels a subscription returned by SubscribeNewItems.
func (l *Local) Unsubscribe(sub *realtime.Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}
