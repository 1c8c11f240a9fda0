package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pairchat/backend/internal/api/handler"
	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/logging"
	"pairchat/backend/internal/media"
	"pairchat/backend/internal/presence"
	"pairchat/backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.IsDevelopment())

	logger.Info().Str("env", cfg.Env).Str("driver", cfg.DBDriver).Msg("starting pairchat backend")

	// 1. База даних і міграції
	db, err := storage.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	if err := storage.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	store := storage.NewStorageService(db)
	logger.Info().Msg("database ready, migrations complete")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Chat Hub, presence і координатор доставки
	hub := chathub.NewManagerService(logger)
	var emitter chathub.Emitter = hub

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		fanout := chathub.NewRedisEmitter(rdb, hub, logger)
		if err := fanout.Listen(ctx); err != nil {
			logger.Fatal().Err(err).Msg("redis subscribe failed")
		}
		emitter = fanout
		logger.Info().Msg("connected to Redis, cross-instance fan-out enabled")
	}

	coordinator := chathub.NewCoordinator(store, presence.NewRegistry(), emitter, logger)

	// 3. Медіа
	mediaSvc := media.NewService(
		media.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL),
		cfg.MaxUploadBytes,
		cfg.AllowedImageMIME,
	)

	// 4. HTTP
	h := handler.NewHandler(cfg, hub, coordinator, store, mediaSvc, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	// Hijacked websocket connections are not tracked by the http.Server.
	hub.CloseAll()
	cancel()

	logger.Info().Msg("server stopped")
}
