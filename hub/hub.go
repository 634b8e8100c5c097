// Package hub fans SatisfiedEvents out to every client watching the
// "relay" topic (spec §4.H), delivering non-blockingly so one slow reader
// can never stall the match engine.
package hub

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber channel depth used when callers
// don't specify one.
const DefaultBuffer = 64

type subscriber struct {
	id uint64
	ch chan SatisfiedEvent
}

// Hub is the single "relay" topic's subscriber registry, grounded on the
// pack's map-of-id-to-handle subscription-manager idiom.
type Hub struct {
	mu        sync.RWMutex
	subs      map[uint64]*subscriber
	nextSubID uint64
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[uint64]*subscriber)}
}

// Subscribe joins the relay topic ("watch relay", spec §6) and returns the
// subscription id (for a later Unsubscribe / "unwatch relay") and the
// channel events arrive on.
func (h *Hub) Subscribe(buffer int) (uint64, <-chan SatisfiedEvent) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	id := atomic.AddUint64(&h.nextSubID, 1)
	sub := &subscriber{id: id, ch: make(chan SatisfiedEvent, buffer)}

	h.mu.Lock()
	h.subs[id] = sub
	h.mu.Unlock()

	log.Debugf("hub: subscriber %d joined", id)
	return id, sub.ch
}

// Unsubscribe leaves the relay topic and closes the subscriber's channel.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		close(sub.ch)
		log.Debugf("hub: subscriber %d left", id)
	}
}

// Publish delivers ev to every current subscriber. Delivery is
// non-blocking: a subscriber whose buffer is full has the event dropped
// for it rather than stalling the caller (the Match Engine's hot path).
func (h *Hub) Publish(ev SatisfiedEvent) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		default:
			log.Warnf("hub: subscriber %d buffer full, dropping event for tx %s", sub.id, ev.TxID)
		}
	}
}

// Count reports the number of active subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
