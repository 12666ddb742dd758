package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	h := NewHub()

	s1 := h.Subscribe(7)
	s2 := h.Subscribe(7)
	other := h.Subscribe(8)

	h.Broadcast(Event{Kind: KindMatchCreated, RecipientID: 7})

	for _, sub := range []*Subscription{s1, s2} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, KindMatchCreated, ev.Kind)
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}

	select {
	case <-other.C:
		t.Fatal("event leaked to another recipient")
	default:
	}
}

func TestHubZeroSubscribersIsSilent(t *testing.T) {
	h := NewHub()
	// must not panic or block
	h.Broadcast(Event{Kind: KindMessageSent, RecipientID: 99})
}

func TestHubUnsubscribeReleases(t *testing.T) {
	h := NewHub()

	sub := h.Subscribe(7)
	require.Equal(t, 1, h.SubscriberCount(7))

	h.Unsubscribe(sub)
	assert.Zero(t, h.SubscriberCount(7))

	_, open := <-sub.C
	assert.False(t, open, "channel must be closed after unsubscribe")

	// double unsubscribe is safe
	h.Unsubscribe(sub)
}

func TestHubSlowSubscriberNeverBlocksPublisher(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(7)

	// overflow the buffer; sends must stay non-blocking
	for i := 0; i < subscriberBuffer*2; i++ {
		h.Broadcast(Event{Kind: KindNotificationCreated, RecipientID: 7})
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriberBuffer, received)
}
