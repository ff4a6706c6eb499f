// Package main runs the background event ingest worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Agentic-Person/whop-chronos-sub010/config"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/events"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/worker"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/cache"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/database"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/queue"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	reportCache := cache.New(rdb.Client, cfg.Cache.Namespace, time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	eventRepo := events.NewRepository(pool)
	processor := worker.NewIngestProcessor(eventRepo, reportCache, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
