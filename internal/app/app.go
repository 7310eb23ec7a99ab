package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"livechat/internal/cache"
	"livechat/internal/config"
	"livechat/internal/db"
	"livechat/internal/events"
	"livechat/internal/handlers"
	"livechat/internal/hub"
	"livechat/internal/presence"
	"livechat/internal/services"
	"livechat/internal/store"
)

// Run starts the server and blocks until SIGINT or SIGTERM.
func Run() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	if err := serve(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}

type stores struct {
	users    store.UserStore
	chats    store.ChatStore
	messages store.MessageStore
}

func serve(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	// Records
	var st stores
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		pg := store.NewPostgres(pool)
		st = stores{users: pg, chats: pg, messages: pg}
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		mem := store.NewMemory()
		st = stores{users: mem, chats: mem, messages: mem}
		logger.Warn().Msg("DATABASE_URL not set, using in-memory records")
	}

	// Redis backs the history cache and optionally presence
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		logger.Info().Msg("connected to Redis")
	}

	var cacheStore cache.Store = cache.NewMemoryStore()
	if rdb != nil {
		cacheStore = cache.NewRedisStore(rdb)
	}
	history := cache.NewHistory(cacheStore, cfg.HistoryTTL, logger)

	var online presence.Store
	if cfg.PresenceBackend == config.PresenceRedis {
		online = presence.NewRedisStore(rdb, "")
	} else {
		reg := presence.NewRegistry()
		defer reg.Close()
		online = reg
	}
	logger.Info().Str("backend", cfg.PresenceBackend).Msg("presence store ready")

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing message events")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("close event publisher")
		}
	}()

	// Realtime
	h := hub.New(cfg.SendBuffer, logger)
	presenceSvc := services.NewPresenceService(online, st.users, h, logger)
	messageSvc := services.NewMessageService(services.MessageDeps{
		Users:        st.users,
		Chats:        st.chats,
		Messages:     st.messages,
		Presence:     online,
		Emitter:      h,
		History:      history,
		Events:       publisher,
		Logger:       logger,
		HistoryLimit: cfg.HistoryLimit,
	})
	socket := handlers.NewSocket(h,
		presenceSvc,
		services.NewRoomRelay(h, logger),
		messageSvc,
		services.NewCallService(st.chats, online, h, logger),
		logger)

	// Fiber App
	app := fiber.New(fiber.Config{
		Immutable:             true,
		ErrorHandler:          handlers.ErrorHandler(logger),
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(handlers.RequestLogger(logger))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "connections": h.Count()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket Route
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Get("/ws", handlers.WebSocketHandler(h, socket, logger))

	// REST
	handlers.RegisterAPI(app.Group("/api"), handlers.API{
		Messages:  messageSvc,
		Presence:  presenceSvc,
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	})

	// Start Server
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}

	logger.Info().Msg("gracefully shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("server shutdown complete")
	return nil
}
