package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/fitmatch/fitmatch/internal/cache"
	"github.com/fitmatch/fitmatch/internal/config"
	"github.com/fitmatch/fitmatch/internal/events"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Dispatcher, etc.)
type AppContext struct {
	Cfg        *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Dispatcher *events.Dispatcher
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, dispatcher *events.Dispatcher) *AppContext {
	return &AppContext{
		Cfg:        cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Dispatcher: dispatcher,
	}
}
