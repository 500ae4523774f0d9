package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saicare2025/dinarexchangenz-sub001/consumer"
	"github.com/saicare2025/dinarexchangenz-sub001/controllers"
	"github.com/saicare2025/dinarexchangenz-sub001/database"
	"github.com/saicare2025/dinarexchangenz-sub001/middleware"
	"github.com/saicare2025/dinarexchangenz-sub001/render"
	"github.com/saicare2025/dinarexchangenz-sub001/repository"
	"github.com/saicare2025/dinarexchangenz-sub001/routes"
	"github.com/saicare2025/dinarexchangenz-sub001/sender"
	"github.com/saicare2025/dinarexchangenz-sub001/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// Database
	if err := database.Connect(logger); err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}

	// Redis backs the shared rate-limit counter; without it the limiter
	// falls back to a per-process one.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, using in-process rate limiter", zap.Error(err))
			redisClient = nil
		}
	}

	// Senders
	emailSender, err := sender.NewSMTPSender()
	if err != nil {
		logger.Fatal("Failed to init SMTP sender", zap.Error(err))
	}
	var smsSender sender.SMSSender
	if twilio, err := sender.NewTwilioSender(); err != nil {
		logger.Warn("Twilio not configured, SMS phase disabled", zap.Error(err))
	} else {
		smsSender = twilio
	}

	// Dependency injection
	jobRepo := repository.NewJobRepository(database.DB, cfg.MaxAttempts, cfg.LockGrace())
	orderRepo := repository.NewOrderRepository(database.DB)

	renderer := render.New(render.Links{
		PortalBaseURL: cfg.PortalBaseURL,
		LoginPath:     cfg.PortalLoginPath,
	})

	enqueuer := services.NewEnqueuer(jobRepo, orderRepo, logger)
	worker := services.NewWorker(jobRepo, orderRepo, renderer, emailSender, smsSender, services.WorkerConfig{
		EmailBatchSize: cfg.EmailBatchSize,
		SMSBatchSize:   cfg.SMSBatchSize,
		CountryCode:    cfg.CountryCode,
		SendTimeout:    cfg.SendTimeout(),
	}, logger)
	scanner := services.NewScanner(orderRepo, enqueuer, services.ScannerConfig{
		DelayThreshold:  cfg.DelayThreshold(),
		ReviewThreshold: cfg.ReviewThreshold(),
		Limit:           cfg.ScanLimit,
	}, logger)

	ctrl := routes.Controllers{
		Cron:         controllers.NewCronController(worker, scanner, enqueuer, logger),
		Notification: controllers.NewNotificationController(jobRepo, logger),
		Order:        controllers.NewOrderController(orderRepo, logger),
	}

	// Router
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	})

	// Request timeout. Generous: one worker pass sends a whole batch inline.
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 120*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	rateLimit := middleware.RateLimit(redisClient, cfg.RateLimitPerMinute, logger)
	routes.RegisterRoutes(r, ctrl, cfg.CronSecret, rateLimit)

	// Lifecycle event consumer (optional)
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	if cfg.SQSQueueURL != "" {
		sqsConsumer, err := consumer.NewSQSConsumer(enqueuer, logger)
		if err != nil {
			logger.Fatal("Failed to init SQS consumer", zap.Error(err))
		}
		go sqsConsumer.Start(consumerCtx)
	}

	// HTTP server
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Order notifier started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	consumerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	logger.Info("Order notifier stopped gracefully")
}
