package notify

import (
	"github.com/gin-gonic/gin"

	"github.com/fitmatch/fitmatch/internal/app"
)

// Registrar ties the notify service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the notify service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the notification, messaging and event-stream endpoints
// to the router group.
func (r *Registrar) Register(rg *gin.RouterGroup) {
	s := NewService(r.appCtx)

	rg.GET("/notifications", s.handleListNotifications)
	rg.GET("/notifications/unread_count", s.handleUnreadNotifications)
	rg.POST("/notifications/:id/read", s.handleMarkNotificationRead)
	rg.POST("/notifications/read_all", s.handleMarkAllNotificationsRead)
	rg.DELETE("/notifications/:id", s.handleDeleteNotification)

	rg.POST("/messages", s.handleSendMessage)
	rg.GET("/messages/unread_count", s.handleUnreadMessages)
	rg.GET("/conversations", s.handleConversations)
	rg.GET("/conversations/:userID", s.handleConversation)
	rg.POST("/conversations/:userID/read", s.handleMarkConversationRead)
	rg.DELETE("/conversations/:userID", s.handleDeleteConversation)

	rg.GET("/events", s.handleEvents)
}
