package notify

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fitmatch/fitmatch/internal/auth"
	svcErr "github.com/fitmatch/fitmatch/internal/errors"
)

type sendMessageRequest struct {
	ReceiverID uint64 `json:"receiver_id" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

func (s *Service) handleListNotifications(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	var token *string
	if t := c.Query("page_token"); t != "" {
		token = &t
	}

	notifications, nextToken, err := s.ListNotifications(c.Request.Context(), userID, token, limit)
	if err != nil {
		s.fail(c, "ListNotifications", err)
		return
	}

	resp := gin.H{"notifications": notifications}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleUnreadNotifications(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	count, err := s.UnreadNotifications(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, "UnreadNotifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Service) handleMarkNotificationRead(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notification id must be a valid uint64"})
		return
	}

	n, err := s.MarkNotificationRead(c.Request.Context(), id, userID)
	if err != nil {
		s.fail(c, "MarkNotificationRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": n})
}

func (s *Service) handleMarkAllNotificationsRead(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	changed, err := s.MarkAllNotificationsRead(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, "MarkAllNotificationsRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": changed})
}

func (s *Service) handleDeleteNotification(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notification id must be a valid uint64"})
		return
	}

	if err := s.DeleteNotification(c.Request.Context(), id, userID); err != nil {
		s.fail(c, "DeleteNotification", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) handleSendMessage(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiver_id and content are required"})
		return
	}

	msg, err := s.SendMessage(c.Request.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		s.fail(c, "SendMessage", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (s *Service) handleConversations(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	conversations, err := s.Conversations(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, "Conversations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (s *Service) handleConversation(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	otherID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id must be a valid uint64"})
		return
	}

	messages, err := s.Conversation(c.Request.Context(), userID, otherID)
	if err != nil {
		s.fail(c, "Conversation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (s *Service) handleMarkConversationRead(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	otherID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id must be a valid uint64"})
		return
	}

	changed, err := s.MarkConversationRead(c.Request.Context(), userID, otherID)
	if err != nil {
		s.fail(c, "MarkConversationRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": changed})
}

func (s *Service) handleDeleteConversation(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	otherID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id must be a valid uint64"})
		return
	}

	if err := s.DeleteConversation(c.Request.Context(), userID, otherID); err != nil {
		s.fail(c, "DeleteConversation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) handleUnreadMessages(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	count, err := s.UnreadMessages(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, "UnreadMessages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// handleEvents streams the caller's live events as server-sent events until
// the client disconnects. Disconnecting releases the subscription; nothing
// here writes to the store.
func (s *Service) handleEvents(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	sub := s.appCtx.Dispatcher.Hub().Subscribe(userID)
	defer s.appCtx.Dispatcher.Hub().Unsubscribe(sub)

	ctx := c.Request.Context()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent(ev.Kind, ev)
			return true
		}
	})
}

func (s *Service) fail(c *gin.Context, op string, err error) {
	status, msg := svcErr.Map(err)
	if status >= http.StatusInternalServerError {
		s.appCtx.Logger.Error(op+" failed", "err", err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
