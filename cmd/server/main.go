package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sitegate/notify-api/internal/channel"
	"github.com/sitegate/notify-api/internal/config"
	"github.com/sitegate/notify-api/internal/directory"
	"github.com/sitegate/notify-api/internal/handler"
	"github.com/sitegate/notify-api/internal/middleware"
	"github.com/sitegate/notify-api/internal/model"
	"github.com/sitegate/notify-api/internal/service"
	"github.com/sitegate/notify-api/internal/store"
	"github.com/sitegate/notify-api/internal/worker"
	ws "github.com/sitegate/notify-api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "notify-api").Logger()

	// Redis backs the inbound rate limiter only; the engine itself is
	// in-memory.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Msg("redis not available, rate limiting disabled")
	}

	// Initialize validator
	validate := validator.New()

	// Job store and retention janitor
	jobStore := store.NewJobStore()
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	janitor := store.NewJanitor(jobStore, cfg.Notify.JobTTL, cfg.Notify.JobMax, cfg.Notify.JanitorEvery, log)
	go janitor.Run(janitorCtx)

	// WebSocket hub for progress push
	hub := ws.NewHub(jobStore, log)
	go hub.Run()

	// Recipient directory
	var dir directory.Directory
	httpDir := directory.NewHTTPDirectory(cfg.Directory.BaseURL, cfg.Directory.APIKey)
	if httpDir.IsConfigured() {
		dir = httpDir
	} else {
		log.Warn().Msg("directory endpoint not configured, using empty static directory")
		dir = directory.NewStatic(nil)
	}

	// Notification channels
	channels := map[model.Channel]channel.Client{
		model.ChannelEmail:    channel.NewMailClient(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.Sender),
		model.ChannelWhatsApp: channel.NewWhatsAppClient(cfg.WhatsApp.APIURL, cfg.WhatsApp.APIKey, cfg.WhatsApp.Template),
	}

	// Worker pool
	pool := worker.NewPool(worker.Config{
		Concurrency: cfg.Notify.Workers,
		SendTimeout: cfg.Notify.SendTimeout,
		RatePerSec:  cfg.Notify.RatePerSec,
	}, jobStore, hub, log)

	// Services and handlers
	notifyService := service.NewNotifyService(cfg.Notify.MaxBatchSize, jobStore, dir, channels, pool, validate, log)
	notifyHandler := handler.NewNotifyHandler(notifyService, validate)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api")
	notify := api.Group("/notify")
	notify.Post("/batch", rateLimiter.BatchLimit(cfg.RateLimit.BatchPerMin), notifyHandler.CreateBatch)
	notify.Get("/progress/:jobId", notifyHandler.Progress)
	notify.Post("/cancel/:jobId", notifyHandler.Cancel)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/notify/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pool.Shutdown(drainCtx); err != nil {
			log.Error().Err(err).Msg("worker pool did not drain in time")
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Int("workers", cfg.Notify.Workers).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
