package main

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/fitmatch/fitmatch/internal/app"
	"github.com/fitmatch/fitmatch/internal/cache"
	"github.com/fitmatch/fitmatch/internal/config"
	"github.com/fitmatch/fitmatch/internal/db"
	"github.com/fitmatch/fitmatch/internal/events"
	"github.com/fitmatch/fitmatch/internal/logger"
	"github.com/fitmatch/fitmatch/internal/repository"
	"github.com/fitmatch/fitmatch/internal/server"
	"github.com/fitmatch/fitmatch/internal/service/matching"
	"github.com/fitmatch/fitmatch/internal/service/notify"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Event plumbing: hub + dispatcher + redis bridge
	hub := events.NewHub()
	dispatcher := events.NewDispatcher(hub, redisCache, repository.NewNotificationRepository(database), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	appCtx := app.New(cfg, database, redisCache, log, dispatcher)

	// Reconciliation sweep: re-resolves likes whose resolver never ran
	matchSvc := matching.NewService(appCtx)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Match.ReconcileSpec, func() {
		if _, err := matchSvc.Reconcile(context.Background()); err != nil {
			log.Error("reconciliation sweep failed", "err", err)
		}
	}); err != nil {
		log.Error("invalid reconcile schedule", "spec", cfg.Match.ReconcileSpec, "err", err)
		return
	}
	scheduler.Start()
	defer scheduler.Stop()

	registrars := []server.Registrar{
		matching.NewRegistrar(appCtx),
		notify.NewRegistrar(appCtx),
	}

	router := server.NewRouter(cfg, registrars...)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.Start(cfg, router); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
