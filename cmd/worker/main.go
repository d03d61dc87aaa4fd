// Package main runs the housekeeping worker: rental sweeps, archive uploads to S3 and purges.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/super-videotheque/backend/config"
	"github.com/super-videotheque/backend/internal/rentals"
	"github.com/super-videotheque/backend/internal/worker"
	"github.com/super-videotheque/backend/pkg/database"
	"github.com/super-videotheque/backend/pkg/queue"
	"github.com/super-videotheque/backend/pkg/redis"
	"github.com/super-videotheque/backend/pkg/storage"
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

	rentalRepo := rentals.NewRepository(pool)
	archiving := cfg.AWS.ArchiveBucket != ""

	var processor *worker.ArchiveProcessor
	var sweepQueue worker.JobQueue
	if archiving {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ArchiveBucket:   cfg.AWS.ArchiveBucket,
			Endpoint:        cfg.AWS.S3Endpoint,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		jobQueue := queue.NewQueue(rdb.Client, logger)
		processor = worker.NewArchiveProcessor(rentalRepo, s3Client, jobQueue, logger)
		sweepQueue = jobQueue
	} else {
		logger.Warn("AWS_S3_ARCHIVE_BUCKET not set, expired rentals are purged without archiving")
	}

	sweeper := worker.NewSweeper(rentalRepo, sweepQueue, worker.SweepConfig{
		BatchSize:       cfg.Housekeeping.SweepBatchSize,
		Retention:       cfg.Housekeeping.Retention(),
		RequireArchived: archiving,
	}, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(workerCtx, cfg.Housekeeping.SweepInterval())
	}()
	if processor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processor.Run(workerCtx)
		}()
	}
	logger.Info("worker started", zap.Bool("archiving", archiving), zap.Duration("sweep_interval", cfg.Housekeeping.SweepInterval()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	wg.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
