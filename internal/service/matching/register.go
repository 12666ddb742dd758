package matching

import (
	"github.com/gin-gonic/gin"

	"github.com/fitmatch/fitmatch/internal/app"
)

// Registrar ties the matching service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the matching service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the matching endpoints to the router group.
func (r *Registrar) Register(rg *gin.RouterGroup) {
	s := NewService(r.appCtx)

	rg.GET("/candidates", s.handleCandidates)
	rg.POST("/decisions", s.handleDecision)
	rg.GET("/matches", s.handleListMatches)
	rg.POST("/matches/:id/unmatch", s.handleUnmatch)
	rg.GET("/likes/received", s.handleLikers)
}
