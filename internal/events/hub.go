// Package events fans collection change notifications out to subscribers.
package events

import (
	"sync"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/metrics"
)

const DefaultBuffer = 64

// Publisher accepts change events from a store.
type Publisher interface {
	Publish(ev domain.ChangeEvent)
}

type subscriber struct {
	ch     chan domain.ChangeEvent
	filter map[domain.Collection]bool
}

func (s *subscriber) wants(c domain.Collection) bool {
	return len(s.filter) == 0 || s.filter[c]
}

// Hub delivers every published event to each matching subscriber. A subscriber
// whose buffer is full misses the event; publishers never block.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscriber
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[uint64]*subscriber), buffer: buffer}
}

type Subscription struct {
	C    <-chan domain.ChangeEvent
	id   uint64
	hub  *Hub
	once sync.Once
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s.id) })
}

// Subscribe registers for the given collections; none means all of them.
func (h *Hub) Subscribe(collections ...domain.Collection) *Subscription {
	sub := &subscriber{
		ch:     make(chan domain.ChangeEvent, h.buffer),
		filter: make(map[domain.Collection]bool, len(collections)),
	}
	for _, c := range collections {
		sub.filter[c] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return &Subscription{C: sub.ch, hub: h}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	return &Subscription{C: sub.ch, id: id, hub: h}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub) Publish(ev domain.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, sub := range h.subs {
		if !sub.wants(ev.Collection) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			metrics.ChangeEventsDropped.Inc()
			logger.Warn("change event dropped for slow subscriber", "subscriber", id, "collection", ev.Collection, "id", ev.ID)
		}
	}
}

// SubscriberCount is the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later Publish calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
