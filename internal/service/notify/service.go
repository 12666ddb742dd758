// Package notify owns the durable notification/message surface and the live
// event stream endpoint. It reads and writes the notification/message store
// and leans on the dispatcher for real-time delivery.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fitmatch/fitmatch/internal/app"
	"github.com/fitmatch/fitmatch/internal/db"
	svcErr "github.com/fitmatch/fitmatch/internal/errors"
	"github.com/fitmatch/fitmatch/internal/events"
	"github.com/fitmatch/fitmatch/internal/repository"
)

// Service contains notification and messaging logic on top of the repository
// and cache layers.
type Service struct {
	appCtx    *app.AppContext
	notifRepo *repository.NotificationRepository
	msgRepo   *repository.MessageRepository
	matchRepo *repository.MatchRepository
}

// NewService creates a notify service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		notifRepo: repository.NewNotificationRepository(appCtx.DB),
		msgRepo:   repository.NewMessageRepository(appCtx.DB),
		matchRepo: repository.NewMatchRepository(appCtx.DB),
	}
}

// ListNotifications returns the user's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID uint64, token *string, limit int) ([]db.Notification, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.notifRepo.ListByRecipient(ctx, userID, token, limit)
}

// UnreadNotifications returns the unread count, cache first with DB
// fallback. On a miss the DB value is written back with the configured TTL.
func (s *Service) UnreadNotifications(ctx context.Context, userID uint64) (int64, error) {
	key := s.appCtx.RedisCache.KeyForUnreadNotifications(userID)

	if n, hit, err := s.appCtx.RedisCache.GetCounter(ctx, key); err == nil && hit {
		return n, nil
	}

	count, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.appCtx.RedisCache.SetCounter(ctx, key, count); err != nil {
		s.appCtx.Logger.Warn("unread counter cache set failed", "user", userID, "err", err)
	}

	return count, nil
}

// MarkNotificationRead flags one of the user's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, id, userID uint64) (db.Notification, error) {
	n, err := s.notifRepo.MarkRead(ctx, id, userID)
	if err != nil {
		if svcErr.Is(err, gorm.ErrRecordNotFound) {
			return db.Notification{}, fmt.Errorf("notification %d: %w", id, svcErr.ErrNotFound)
		}
		return db.Notification{}, err
	}

	s.dropCounter(ctx, s.appCtx.RedisCache.KeyForUnreadNotifications(userID))
	return n, nil
}

// MarkAllNotificationsRead flags every unread notification of the user.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID uint64) (int64, error) {
	changed, err := s.notifRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	key := s.appCtx.RedisCache.KeyForUnreadNotifications(userID)
	if err := s.appCtx.RedisCache.SetCounter(ctx, key, 0); err != nil {
		s.appCtx.Logger.Warn("unread counter reset failed", "user", userID, "err", err)
	}

	return changed, nil
}

// DeleteNotification removes one of the user's notifications.
func (s *Service) DeleteNotification(ctx context.Context, id, userID uint64) error {
	if err := s.notifRepo.Delete(ctx, id, userID); err != nil {
		if svcErr.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("notification %d: %w", id, svcErr.ErrNotFound)
		}
		return err
	}
	s.dropCounter(ctx, s.appCtx.RedisCache.KeyForUnreadNotifications(userID))
	return nil
}

// SendMessage appends a chat message between matched users and announces it
// to the receiver's live stream. Messaging requires an active match.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID uint64, content string) (db.Message, error) {
	if senderID == receiverID {
		return db.Message{}, svcErr.ErrSelfReference
	}
	if strings.TrimSpace(content) == "" {
		return db.Message{}, fmt.Errorf("message content must not be empty")
	}

	match, err := s.matchRepo.ByPair(ctx, senderID, receiverID)
	if err != nil {
		if svcErr.Is(err, gorm.ErrRecordNotFound) {
			return db.Message{}, svcErr.ErrNotMatched
		}
		return db.Message{}, err
	}
	if match.Status != db.MatchActive {
		return db.Message{}, svcErr.ErrNotMatched
	}

	msg, err := s.msgRepo.Append(ctx, senderID, receiverID, content)
	if err != nil {
		return db.Message{}, err
	}

	key := s.appCtx.RedisCache.KeyForUnreadMessages(receiverID)
	if err := s.appCtx.RedisCache.BumpCounter(ctx, key, 1); err != nil {
		s.appCtx.Logger.Warn("unread message counter bump failed", "receiver", receiverID, "err", err)
	}

	// the message row is the durable record; the event is delivery only
	payload := events.MessagePayload{
		MessageID: msg.ID,
		SenderID:  senderID,
		Content:   msg.Content,
	}
	if body, err := json.Marshal(payload); err != nil {
		s.appCtx.Logger.Warn("message event payload marshal failed", "message", msg.ID, "err", err)
	} else {
		s.appCtx.Dispatcher.Announce(ctx, events.Event{
			Kind:        events.KindMessageSent,
			RecipientID: receiverID,
			Payload:     body,
			CreatedAt:   msg.CreatedAt,
		})
	}

	return msg, nil
}

// Conversation returns the full message history between the user and another
// user, oldest first.
func (s *Service) Conversation(ctx context.Context, userID, otherID uint64) ([]db.Message, error) {
	return s.msgRepo.Conversation(ctx, userID, otherID)
}

// Conversations returns the user's conversation overview, newest first.
func (s *Service) Conversations(ctx context.Context, userID uint64) ([]repository.ConversationSummary, error) {
	return s.msgRepo.Overview(ctx, userID)
}

// MarkConversationRead flags everything the other user sent as read.
func (s *Service) MarkConversationRead(ctx context.Context, userID, otherID uint64) (int64, error) {
	changed, err := s.msgRepo.MarkConversationRead(ctx, userID, otherID)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.dropCounter(ctx, s.appCtx.RedisCache.KeyForUnreadMessages(userID))
	}
	return changed, nil
}

// UnreadMessages returns the unread message count, cache first with DB
// fallback.
func (s *Service) UnreadMessages(ctx context.Context, userID uint64) (int64, error) {
	key := s.appCtx.RedisCache.KeyForUnreadMessages(userID)

	if n, hit, err := s.appCtx.RedisCache.GetCounter(ctx, key); err == nil && hit {
		return n, nil
	}

	count, err := s.msgRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.appCtx.RedisCache.SetCounter(ctx, key, count); err != nil {
		s.appCtx.Logger.Warn("unread counter cache set failed", "user", userID, "err", err)
	}

	return count, nil
}

// DeleteConversation removes the whole conversation between the user and the
// other user, both directions.
func (s *Service) DeleteConversation(ctx context.Context, userID, otherID uint64) error {
	if err := s.msgRepo.DeleteConversation(ctx, userID, otherID); err != nil {
		return err
	}
	s.dropCounter(ctx, s.appCtx.RedisCache.KeyForUnreadMessages(userID))
	return nil
}

// dropCounter invalidates a cached counter so the next read recomputes from
// the DB. Best-effort.
func (s *Service) dropCounter(ctx context.Context, key string) {
	if err := s.appCtx.RedisCache.DropCounter(ctx, key); err != nil {
		s.appCtx.Logger.Warn("counter invalidation failed", "key", key, "err", err)
	}
}
