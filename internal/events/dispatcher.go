package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fitmatch/fitmatch/internal/cache"
	"github.com/fitmatch/fitmatch/internal/db"
)

// NotificationStore is the slice of the notification collaborator the
// dispatcher needs: durable append of event records.
type NotificationStore interface {
	Append(ctx context.Context, recipientID uint64, kind, payload string) (db.Notification, error)
}

// Dispatcher persists domain events and pushes them to live subscribers.
//
// Delivery path: durable write first (notification row, unread counter),
// then PUBLISH on the recipient's Redis channel. A background bridge
// (Run) PSUBSCRIBEs to every per-user channel and feeds the local hub, so
// events published by any process reach subscribers connected to this one.
type Dispatcher struct {
	hub    *Hub
	cache  *cache.RedisCache
	store  NotificationStore
	logger *slog.Logger
}

// NewDispatcher wires a dispatcher over the given hub, cache and store.
func NewDispatcher(hub *Hub, rc *cache.RedisCache, store NotificationStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, cache: rc, store: store, logger: logger}
}

// Hub exposes the underlying hub for subscribe/unsubscribe.
func (d *Dispatcher) Hub() *Hub { return d.hub }

// Notify durably records a notification for the recipient, bumps their
// unread counter, and attempts live delivery. The notification row is the
// source of truth; cache and live-channel failures are logged and absorbed.
func (d *Dispatcher) Notify(ctx context.Context, recipientID uint64, kind string, payload any) (db.Notification, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return db.Notification{}, err
	}

	n, err := d.store.Append(ctx, recipientID, kind, string(body))
	if err != nil {
		return db.Notification{}, err
	}

	if err := d.cache.BumpCounter(ctx, d.cache.KeyForUnreadNotifications(recipientID), 1); err != nil {
		d.logger.Warn("unread counter bump failed", "recipient", recipientID, "err", err)
	}

	d.Announce(ctx, Event{
		Kind:        kind,
		RecipientID: recipientID,
		Payload:     body,
		CreatedAt:   n.CreatedAt,
	})

	return n, nil
}

// Announce pushes an already-persisted event onto the live channel.
// Best-effort: the caller's durable write has already happened.
func (d *Dispatcher) Announce(ctx context.Context, ev Event) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		d.logger.Error("event marshal failed", "kind", ev.Kind, "err", err)
		return
	}

	if err := d.cache.PublishEvent(ctx, ev.RecipientID, raw); err != nil {
		d.logger.Warn("event publish failed, delivering locally only",
			"recipient", ev.RecipientID, "kind", ev.Kind, "err", err)
		d.hub.Broadcast(ev)
	}
}

// Run bridges the Redis event channels into the local hub until ctx is
// canceled. Call it once, in its own goroutine, per process.
func (d *Dispatcher) Run(ctx context.Context) {
	pubsub := d.cache.SubscribeEvents(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				d.logger.Warn("dropping malformed event", "channel", msg.Channel, "err", err)
				continue
			}
			d.hub.Broadcast(ev)
		}
	}
}
