package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fitmatch/fitmatch/internal/db"
)

// MessageRepository provides data access for chat messages. A message
// belongs to the unordered (sender, receiver) conversation and is only
// removed conversation-at-a-time.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Append inserts a message row.
func (r *MessageRepository) Append(
	ctx context.Context,
	senderID, receiverID uint64,
	content string,
) (db.Message, error) {
	m := db.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	err := r.db.WithContext(ctx).Create(&m).Error
	return m, err
}

// Conversation returns every message between the two users, oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, a, b uint64) ([]db.Message, error) {
	var messages []db.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// ConversationSummary is one row of a user's conversation overview.
type ConversationSummary struct {
	OtherUserID uint64     `json:"other_user_id"`
	LastMessage db.Message `json:"last_message"`
	UnreadCount int64      `json:"unread_count"`
}

// Overview groups the user's messages by counterpart, newest conversation
// first, with per-conversation unread counts.
func (r *MessageRepository) Overview(ctx context.Context, userID uint64) ([]ConversationSummary, error) {
	var messages []db.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	index := make(map[uint64]int)
	summaries := make([]ConversationSummary, 0)
	for _, m := range messages {
		other := m.SenderID
		if other == userID {
			other = m.ReceiverID
		}

		i, seen := index[other]
		if !seen {
			index[other] = len(summaries)
			summaries = append(summaries, ConversationSummary{
				OtherUserID: other,
				LastMessage: m,
			})
			i = index[other]
		}

		if m.ReceiverID == userID && !m.IsRead {
			summaries[i].UnreadCount++
		}
	}

	return summaries, nil
}

// MarkConversationRead flags everything the other user sent to the reader as
// read and returns how many rows changed.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, readerID, otherID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountUnread returns the user's unread message count from the DB.
func (r *MessageRepository) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// DeleteConversation removes every message between the two users, in both
// directions. Single messages are never deleted individually.
func (r *MessageRepository) DeleteConversation(ctx context.Context, a, b uint64) error {
	return r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			a, b, b, a).
		Delete(&db.Message{}).Error
}
