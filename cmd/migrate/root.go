package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"z-novel-migration/internal/application/migration"
	"z-novel-migration/internal/config"
	"z-novel-migration/internal/domain/repository"
	"z-novel-migration/internal/infrastructure/persistence/postgres"
	"z-novel-migration/pkg/logger"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Hierarchy migration operations",
	Long: `migrate drives the book-to-hierarchy data migration directly against the store:
run a migration, validate data before or after, roll back a run, and inspect run history.
Commands execute synchronously in this process, bypassing the command queue.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("migrate version {{.Version}}\n")
}

// app CLI 的最小依赖集，直连 PostgreSQL，不依赖 Redis 与消息队列
type app struct {
	cfg       *config.Config
	migrator  *migration.HierarchyMigration
	validator *migration.Validator
	runs      repository.MigrationRunRepository
}

// newApp 按 worker 的手工装配方式构建应用层依赖
func newApp(_ context.Context) (*app, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init postgres: %w", err)
	}
	cleanup := func() { _ = pgClient.Close() }

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

	return &app{
		cfg:       cfg,
		migrator:  migrator,
		validator: validator,
		runs:      runRepo,
	}, cleanup, nil
}
