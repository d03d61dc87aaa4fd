// Package main runs the rental HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/super-videotheque/backend/config"
	"github.com/super-videotheque/backend/internal/auth"
	"github.com/super-videotheque/backend/internal/middleware"
	"github.com/super-videotheque/backend/internal/movies"
	"github.com/super-videotheque/backend/internal/payhip"
	"github.com/super-videotheque/backend/internal/rentals"
	"github.com/super-videotheque/backend/internal/worker"
	"github.com/super-videotheque/backend/pkg/bunny"
	"github.com/super-videotheque/backend/pkg/database"
	"github.com/super-videotheque/backend/pkg/lock"
	"github.com/super-videotheque/backend/pkg/queue"
	"github.com/super-videotheque/backend/pkg/ratelimit"
	"github.com/super-videotheque/backend/pkg/redis"
	"github.com/super-videotheque/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: time.Hour,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		Namespace: "videotheque",
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	signer := bunny.NewSigner(bunny.Config{
		SigningKey:   cfg.Bunny.SigningKey,
		EmbedBaseURL: cfg.Bunny.EmbedBaseURL,
		MaxTTL:       cfg.Rental.SignedURLMaxTTL(),
	})
	licenseClient := payhip.NewClient(payhip.Config{
		BaseURL:         cfg.Payhip.APIBaseURL,
		APIKey:          cfg.Payhip.APIKey,
		ProductID:       cfg.Payhip.ProductID,
		Timeout:         cfg.Payhip.Timeout(),
		FreshnessWindow: cfg.Rental.FreshnessWindow(),
	}, logger)
	locker := lock.NewLocker(rdb.Client, lock.Config{
		Prefix:      rdb.Key("lock"),
		TTL:         cfg.Rental.LockTTL(),
		WaitTimeout: 5 * time.Second,
	}, logger)
	limiter := ratelimit.NewLimiter(rdb.Client, rdb.Key("ratelimit"))

	// Archive jobs only make sense when a bucket is configured for the worker.
	var archiveQueue rentals.ArchiveQueue
	var sweepQueue worker.JobQueue
	if cfg.AWS.ArchiveBucket != "" {
		jobQueue := queue.NewQueue(rdb.Client, logger)
		archiveQueue, sweepQueue = jobQueue, jobQueue
	}

	movieRepo := movies.NewRepository(pool)
	movieHandler := movies.NewHandler(movieRepo, signer, cfg.Bunny.PullZoneHost, int64(cfg.Bunny.MediaTTLSec), logger)

	rentalRepo := rentals.NewRepository(pool)
	rentalService := rentals.NewService(rentalRepo, movieRepo, licenseClient, signer, locker, archiveQueue, rentals.Config{
		DefaultRentalHours: cfg.Rental.DefaultHours,
		SignedURLMaxTTL:    cfg.Rental.SignedURLMaxTTL(),
	}, logger)
	sweeper := worker.NewSweeper(rentalRepo, sweepQueue, worker.SweepConfig{
		BatchSize:       cfg.Housekeeping.SweepBatchSize,
		Retention:       cfg.Housekeeping.Retention(),
		RequireArchived: cfg.AWS.ArchiveBucket != "",
	}, logger)
	rentalHandler := rentals.NewHandler(rentalService, rentalRepo, sweeper, logger)
	payhipHandler := payhip.NewHandler(rentalService, logger)

	jwtService := auth.NewJWTService(cfg.Admin.JWTSecret, cfg.Admin.ExpireHours)
	authHandler, err := auth.NewHandler(cfg.Admin.Password, cfg.Admin.PasswordHash, jwtService, logger)
	if err != nil {
		logger.Fatal("admin auth", zap.Error(err))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			logger.Error("health: database", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "database unavailable"})
			return
		}
		if err := rdb.Check(c.Request.Context()); err != nil {
			logger.Error("health: redis", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "redis unavailable"})
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Catalog
	router.GET("/movies", movieHandler.List)
	router.GET("/movies/:id", movieHandler.Get)

	// Rentals (public, rate limited per IP)
	rentLimit := middleware.RateLimit(limiter, "rentals", cfg.Rental.RateLimitPerHour, time.Hour,
		"too many rental attempts, try again later", logger)
	router.POST("/rentals", rentLimit, rentalHandler.Create)
	router.GET("/rentals/:id", rentalHandler.Get)

	validateLimit := middleware.RateLimit(limiter, "payhip-validate", cfg.Rental.ValidateLimitPer15, 15*time.Minute,
		"too many validation attempts, try again later", logger)
	router.POST("/payhip/validate", validateLimit, payhipHandler.Validate)

	// Admin
	router.POST("/admin/login", validateLimit, authHandler.Login)
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/rentals", rentalHandler.ListByCode)
		admin.POST("/rentals/sweep", rentalHandler.Sweep)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
