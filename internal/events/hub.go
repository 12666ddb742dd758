package events

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer bounds how many undelivered events a single subscriber may
// hold before the hub starts dropping on that channel. Dropped live events
// are not lost: the store keeps the durable copy.
const subscriberBuffer = 16

// Subscription is a live event feed for one recipient. Read from C until it
// is closed; call Hub.Unsubscribe to release it.
type Subscription struct {
	ID          uuid.UUID
	RecipientID uint64
	C           <-chan Event

	ch chan Event
}

// Hub fans events out to the active subscribers of each recipient.
// Publishing to a recipient with zero subscribers is a normal, silent case.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]map[uuid.UUID]*Subscription
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint64]map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a new live feed for the recipient.
func (h *Hub) Subscribe(recipientID uint64) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{
		ID:          uuid.New(),
		RecipientID: recipientID,
		C:           ch,
		ch:          ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[recipientID]; !ok {
		h.subscribers[recipientID] = make(map[uuid.UUID]*Subscription)
	}
	h.subscribers[recipientID][sub.ID] = sub

	return sub
}

// Unsubscribe removes the subscription and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[sub.RecipientID]
	if !ok {
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		return
	}

	delete(subs, sub.ID)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.subscribers, sub.RecipientID)
	}
}

// Broadcast delivers an event to every active subscriber of its recipient.
// Sends are non-blocking so a slow consumer never stalls the publisher.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[ev.RecipientID] {
		select {
		case sub.ch <- ev:
		default:
			// subscriber buffer full; drop, the store has the durable copy
		}
	}
}

// SubscriberCount reports how many live feeds a recipient currently has.
func (h *Hub) SubscriberCount(recipientID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[recipientID])
}
