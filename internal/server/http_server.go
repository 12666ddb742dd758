package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitmatch/fitmatch/internal/auth"
	"github.com/fitmatch/fitmatch/internal/config"
)

// Registrar is a common interface for all HTTP service registrars.
type Registrar interface {
	Register(rg *gin.RouterGroup)
}

// NewRouter builds the gin engine, mounts the health check and attaches all
// provided services under the authenticated /api/v1 group.
func NewRouter(cfg *config.Config, registrars ...Registrar) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := router.Group("/api/v1")
	api.Use(auth.Middleware(cfg))
	for _, r := range registrars {
		r.Register(api)
	}

	return router
}

// Start runs the HTTP server on the configured address.
func Start(cfg *config.Config, router *gin.Engine) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	return router.Run(addr)
}
