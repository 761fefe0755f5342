package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"tourly/api/routes"
	_ "tourly/docs"
	"tourly/internal/notifications"
	"tourly/internal/shared/config"
	"tourly/internal/shared/database"
	"tourly/internal/shared/middleware"
	"tourly/pkg/logger"
	"tourly/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// @title           Tourly Booking API
// @version         1.0
// @description     Tour capacity, booking lifecycle and refund workflow.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// Rebuild the default logger so its handler follows the configured mode.
	appLogger = logger.New()
	logger.SetDefault(appLogger)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	dispatcher, closeDispatcher := newDispatcher(cfg, appLogger)
	defer closeDispatcher()

	services, err := routes.BuildServices(cfg, db, dispatcher)
	if err != nil {
		appLogger.Error("failed to wire services", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.UsesMemoryStorage() {
		seeded, err := services.RefundPolicies.SeedDefaults(context.Background())
		if err != nil {
			appLogger.Error("failed to seed refund policies", slog.Any("error", err))
		} else {
			appLogger.Info("Seeded default refund policies", slog.Int("count", seeded))
		}
	}

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), cfg.RateLimit)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("redis_backed", db.GetRedisClient() != nil),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	jobsCtx, jobsCancel := context.WithCancel(context.Background())
	defer jobsCancel()
	if cfg.Jobs.Enabled {
		if err := services.Jobs.Start(jobsCtx); err != nil {
			appLogger.Error("Failed to start booking jobs", slog.Any("error", err))
		} else {
			appLogger.Info("Booking jobs started",
				slog.Duration("hold_sweep", cfg.Jobs.HoldSweepInterval),
				slog.Duration("completion", cfg.Jobs.CompletionInterval),
			)
			defer services.Jobs.Stop()
		}
	}

	router := setupRouter(cfg, db, services, rateLimiter)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("storage", cfg.StorageDriver),
			slog.String("payment_gateway", cfg.Payment.Gateway),
			slog.String("version", Version),
			slog.String("build_time", BuildTime),
			slog.String("commit", GitCommit),
			slog.Bool("redis", db.GetRedisClient() != nil),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

// newDispatcher publishes to Kafka when enabled and falls back to the log
// dispatcher when the producer cannot be created.
func newDispatcher(cfg *config.Config, appLogger *logger.Logger) (notifications.Dispatcher, func()) {
	if !cfg.Kafka.Enabled {
		return notifications.NewLogDispatcher(appLogger), func() {}
	}

	producerConfig := notifications.DefaultKafkaProducerConfig()
	producerConfig.Brokers = cfg.Kafka.Brokers
	producerConfig.Topic = cfg.Kafka.Topic
	producerConfig.ClientID = cfg.Kafka.ClientID

	dispatcher, err := notifications.NewKafkaDispatcher(producerConfig)
	if err != nil {
		appLogger.Error("Failed to initialize Kafka producer, notifications will be logged only", slog.Any("error", err))
		return notifications.NewLogDispatcher(appLogger), func() {}
	}
	appLogger.Info("Kafka notification producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))

	return dispatcher, func() {
		if err := dispatcher.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", slog.Any("error", err))
		}
	}
}

func setupRouter(cfg *config.Config, db *database.DB, services *routes.Services, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(middleware.RequestID(), middleware.RequestLogger(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return len(cfg.CORSOrigins) == 0 || slices.Contains(cfg.CORSOrigins, "*") || slices.Contains(cfg.CORSOrigins, origin)
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "X-Tourly-Signature", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	appRouter := routes.NewRouter(cfg, db, services, rateLimiter)
	appRouter.SetupRoutes(engine)

	return engine
}
