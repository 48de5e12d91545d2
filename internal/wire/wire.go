//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"z-novel-migration/internal/application/migration"
	"z-novel-migration/internal/config"
	"z-novel-migration/internal/domain/repository"
	"z-novel-migration/internal/infrastructure/persistence/postgres"
	"z-novel-migration/internal/infrastructure/persistence/redis"
	"z-novel-migration/internal/interfaces/http/handler"
	"z-novel-migration/internal/interfaces/http/router"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewTxManager,
		postgres.NewBookRepository,
		postgres.NewMigrationRunRepository,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		MigrationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewBookRepository,
	postgres.NewChapterRepository,
	postgres.NewStoryRepository,
	postgres.NewPartRepository,
	postgres.NewEnhancedChapterRepository,
	postgres.NewSceneRepository,
	postgres.NewMigrationRunRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.BookRepository), new(*postgres.BookRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.StoryRepository), new(*postgres.StoryRepository)),
	wire.Bind(new(repository.PartRepository), new(*postgres.PartRepository)),
	wire.Bind(new(repository.EnhancedChapterRepository), new(*postgres.EnhancedChapterRepository)),
	wire.Bind(new(repository.SceneRepository), new(*postgres.SceneRepository)),
	wire.Bind(new(repository.MigrationRunRepository), new(*postgres.MigrationRunRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// MigrationSet 迁移应用层提供者集合
var MigrationSet = wire.NewSet(
	migration.NewValidator,
	migration.NewHierarchyMigration,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewMigrationHandler,
	router.New,
)
