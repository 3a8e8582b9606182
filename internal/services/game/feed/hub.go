// Package feed delivers insert notifications for game log records.
//
// Delivery is at-least-once per subscriber with no ordering guarantee
// between deliveries; consumers re-replay the authoritative log rather
// than applying notifications as state.
package feed

import (
	"log"
	"sync"

	"github.com/pairspace/pairspace/internal/services/game/domain/event"
)

const subscriberBuffer = 32

// Hub fans out inserted events to subscribers scoped by owner id.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan event.Event]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan event.Event]struct{})}
}

// Subscribe registers a listener for records owned by ownerID. The
// returned cancel func unregisters the listener and closes the channel.
func (h *Hub) Subscribe(ownerID string) (<-chan event.Event, func()) {
	ch := make(chan event.Event, subscriberBuffer)

	h.mu.Lock()
	listeners, ok := h.subscribers[ownerID]
	if !ok {
		listeners = make(map[chan event.Event]struct{})
		h.subscribers[ownerID] = listeners
	}
	listeners[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if listeners, ok := h.subscribers[ownerID]; ok {
				delete(listeners, ch)
				if len(listeners) == 0 {
					delete(h.subscribers, ownerID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish notifies subscribers of the record's owner. Sends never block:
// a subscriber that cannot keep up misses the notification and is
// expected to catch up from its next full replay.
//
// Sends happen under the hub lock so a concurrent cancel cannot close a
// channel mid-delivery.
func (h *Hub) Publish(evt event.Event) {
	h.Notify(evt, evt.OwnerID)
}

// Notify delivers the record to the subscribers of each recipient.
// Single-owner records that both participants must observe (moves) are
// notified to both sides; dual-materialized records notify each row's
// owner separately.
func (h *Hub) Notify(evt event.Event, recipients ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, recipient := range recipients {
		for ch := range h.subscribers[recipient] {
			select {
			case ch <- evt:
			default:
				log.Printf("feed: dropping notification for slow subscriber user=%s seq=%d", recipient, evt.Seq)
			}
		}
	}
}

// PublishAll notifies each record's owner in order.
func (h *Hub) PublishAll(events []event.Event) {
	for _, evt := range events {
		h.Publish(evt)
	}
}
