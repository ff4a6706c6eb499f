// Package main runs the creator analytics HTTP server with graceful shutdown.
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

	"github.com/Agentic-Person/whop-chronos-sub010/config"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/analytics"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/engagement"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/events"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/middleware"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/usage"
	"github.com/Agentic-Person/whop-chronos-sub010/internal/worker"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/cache"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/database"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/queue"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/redis"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/response"
	"github.com/Agentic-Person/whop-chronos-sub010/pkg/storage"
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

	var s3Client *storage.S3
	if cfg.AWS.ExportsBucket != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled, exports served inline", zap.Error(err))
		}
	}

	reportCache := cache.New(rdb.Client, cfg.Cache.Namespace, time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	eventRepo := events.NewRepository(pool)
	aggregator := analytics.NewAggregator(eventRepo, logger)

	// Exports stay inline unless a bucket is reachable.
	var exportStore analytics.ExportStore
	if s3Client != nil {
		exportStore = s3Client
	}
	analyticsHandler := analytics.NewHandler(aggregator, reportCache, exportStore, logger)
	engagementHandler := engagement.NewHandler(eventRepo, logger)

	usageRepo := usage.NewRepository(pool)
	usageService := usage.NewService(usageRepo, logger)
	usageHandler := usage.NewHandler(usageService, logger)

	eventsHandler := events.NewHandler(jobQueue, logger)
	ingestProcessor := worker.NewIngestProcessor(eventRepo, reportCache, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Telemetry ingest (called by player embeds)
	router.POST("/events", eventsHandler.Track)

	// Creator dashboard
	creators := router.Group("/creators")
	{
		creators.GET("/:id/analytics", analyticsHandler.GetByCreator)
		creators.GET("/:id/analytics/export", analyticsHandler.Export)
		creators.GET("/:id/engagement", engagementHandler.GetByCreator)
		creators.GET("/:id/usage", usageHandler.GetByCreator)
		creators.GET("/:id/usage/check", usageHandler.CheckQuota)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (event ingest from the Redis queue)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go ingestProcessor.Run(workerCtx)
	logger.Info("ingest worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
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
