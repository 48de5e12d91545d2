// Package main 迁移执行器入口（migration-worker）
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"z-novel-migration/internal/application/migration"
	"z-novel-migration/internal/config"
	"z-novel-migration/internal/infrastructure/messaging"
	"z-novel-migration/internal/infrastructure/persistence/postgres"
	"z-novel-migration/internal/infrastructure/persistence/redis"
	"z-novel-migration/pkg/logger"
	"z-novel-migration/pkg/tracer"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "migration-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	txMgr := postgres.NewTxManager(pgClient)
	bookRepo := postgres.NewBookRepository(pgClient)
	chapterRepo := postgres.NewChapterRepository(pgClient)
	storyRepo := postgres.NewStoryRepository(pgClient)
	partRepo := postgres.NewPartRepository(pgClient)
	enhancedRepo := postgres.NewEnhancedChapterRepository(pgClient)
	sceneRepo := postgres.NewSceneRepository(pgClient)
	runRepo := postgres.NewMigrationRunRepository(pgClient)

	validator := migration.NewValidator(bookRepo, chapterRepo, storyRepo, partRepo, enhancedRepo, sceneRepo)
	migrator := migration.NewHierarchyMigration(
		bookRepo, chapterRepo, storyRepo, partRepo, enhancedRepo, sceneRepo,
		runRepo, txMgr, validator,
	)

	cache := redis.NewCache(redisClient)
	runLock := redis.NewRunLock(redisClient)

	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	producer := messaging.NewProducer(redisClient.Redis(), int64(maxLen))

	w := newWorker(cfg, migrator, validator, cache, runLock, producer)
	migrator.OnProgressUpdate(w.handleProgress)

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamMigrationCmd,
		Group:         messaging.ConsumerGroupMigrationWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	consumer.RegisterHandler(messaging.MessageTypeRunMigration, w.handleRunCommand)
	consumer.RegisterHandler(messaging.MessageTypeRollbackMigration, w.handleRollbackCommand)
	consumer.RegisterHandler(messaging.MessageTypeValidateMigration, w.handleValidateCommand)

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(ctx, 10)

	// 指标与存活端点
	if cfg.Observability.Metrics.Enabled {
		go serveMetrics(ctx, cfg)
	}

	log := logger.FromContext(ctx)
	log.Info("migration-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("migration-worker shutting down")
	consumer.Stop()
}

// serveMetrics 暴露 Prometheus 指标与存活检查
func serveMetrics(ctx context.Context, cfg *config.Config) {
	path := cfg.Observability.Metrics.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", cfg.Observability.Metrics.Port)
	logger.Info(ctx, "metrics server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error(ctx, "metrics server error", err)
	}
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
