// Package events implements the real-time side of the matching engine: an
// in-process fan-out hub keyed by recipient and a dispatcher that persists
// events before attempting live delivery. The live channel is a latency
// optimization only; history is always recoverable from the store.
package events

import (
	"encoding/json"
	"time"
)

// Event kinds carried over the live channel.
const (
	KindMatchCreated        = "match_created"
	KindMessageSent         = "message_sent"
	KindNotificationCreated = "notification_created"
)

// Event is a domain event addressed to a single recipient.
type Event struct {
	Kind        string          `json:"kind"`
	RecipientID uint64          `json:"recipient_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MatchPayload is the payload of a match_created event.
type MatchPayload struct {
	MatchID     uint64 `json:"match_id"`
	OtherUserID uint64 `json:"other_user_id"`
}

// MessagePayload is the payload of a message_sent event.
type MessagePayload struct {
	MessageID uint64 `json:"message_id"`
	SenderID  uint64 `json:"sender_id"`
	Content   string `json:"content"`
}
