package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/erazemk/achados/internal/model"
)

// DefaultBuffer is the per-subscriber queue length of a Hub.
const DefaultBuffer = 16

// Hub is an in-process Broker.
type Hub struct {
	log    *slog.Logger
	buffer int

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*hubSub
	closed bool

	dropped atomic.Int64
}

type hubSub struct {
	campus string
	ch     chan model.Item
	done   chan struct{}
}

// NewHub creates a Hub whose subscribers each queue up to buffer items.
func NewHub(log *slog.Logger, buffer int) *Hub {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Hub{
		log:    log.With("service", "realtime"),
		buffer: buffer,
		subs:   make(map[uint64]*hubSub),
	}
}

// Publish queues item for every matching subscriber without blocking.
func (h *Hub) Publish(_ context.Context, item model.Item) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed
	}
	for id, s := range h.subs {
		if s.campus != "" && s.campus != item.Campus {
			continue
		}
		select {
		case s.ch <- item:
		default:
			h.dropped.Add(1)
			h.log.Warn("subscriber queue full, event dropped", "subscriber", id, "item_id", item.ID)
		}
	}
	return nil
}

func (h *Hub) Subscribe(campus string, fn func(model.Item)) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	h.nextID++
	id := h.nextID
	s := &hubSub{
		campus: campus,
		ch:     make(chan model.Item, h.buffer),
		done:   make(chan struct{}),
	}
	h.subs[id] = s

	go func() {
		defer close(s.done)
		for item := range s.ch {
			fn(item)
		}
	}()

	return newSubscription(campus, func() error {
		h.remove(id)
		<-s.done
		return nil
	}), nil
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Close drops every subscriber after their queued items are delivered.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[uint64]*hubSub)
	for _, s := range subs {
		close(s.ch)
	}
	h.mu.Unlock()

	for _, s := range subs {
		<-s.done
	}
	return nil
}

// Dropped reports how many events were discarded for slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
