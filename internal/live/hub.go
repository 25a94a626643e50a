// Package live is the change hub: an owner-scoped publish/subscribe
// fan-out that tells interested sessions "this owner's snippets (or
// folders) changed, re-query them".
//
// Events carry no data, only the collection that changed. Subscribers
// react by reloading the full result set, so events are safe to coalesce
// or drop: whatever the latest query returns is by definition the current
// snapshot, regardless of how many intermediate events were missed. That
// property is what lets Publish be non-blocking.
package live

import (
	"log/slog"
	"sync"
)

// Collection names one of the two document collections.
type Collection string

const (
	CollectionSnippets Collection = "snippets"
	CollectionFolders  Collection = "folders"
)

// Change is one hub event: some mutation touched ownerID's collection.
type Change struct {
	OwnerID    string
	Collection Collection
}

// subscriptionBuffer is the channel capacity per subscriber. Small on
// purpose: a subscriber that can't keep up loses intermediate events, and
// losing intermediate events is harmless (see package comment).
const subscriptionBuffer = 16

// Subscription is one subscriber's event stream. Release it with Close
// (or Hub.Unsubscribe) when the owning session tears down.
type Subscription struct {
	C       <-chan Change
	ownerID string
	ch      chan Change
	hub     *Hub
	once    sync.Once
}

// Close releases the subscription and closes C.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub routes change events to subscribers keyed by owner ID.
// All methods are safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers interest in one owner's changes.
func (h *Hub) Subscribe(ownerID string) *Subscription {
	ch := make(chan Change, subscriptionBuffer)
	sub := &Subscription{C: ch, ownerID: ownerID, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[*Subscription]struct{})
	}
	h.subs[ownerID][sub] = struct{}{}

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
// Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		if owners := h.subs[sub.ownerID]; owners != nil {
			delete(owners, sub)
			if len(owners) == 0 {
				delete(h.subs, sub.ownerID)
			}
		}
		h.mu.Unlock()
		close(sub.ch)
	})
}

// Publish notifies every subscriber of ownerID that the given collections
// changed. The send is non-blocking: a subscriber with a full buffer skips
// the event and will catch up on its next delivery.
func (h *Hub) Publish(ownerID string, collections ...Collection) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, col := range collections {
		for sub := range h.subs[ownerID] {
			select {
			case sub.ch <- Change{OwnerID: ownerID, Collection: col}:
			default:
				h.logger.Warn("live: subscriber buffer full, dropping change event",
					slog.String("ownerID", ownerID),
					slog.String("collection", string(col)),
				)
			}
		}
	}
}
