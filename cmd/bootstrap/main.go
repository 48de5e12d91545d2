package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"z-novel-migration/internal/config"
	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting migration store bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表（源模型、目标层级模型与迁移运行账本）
	fmt.Println("Running schema migration...")
	db := dataLayer.PgClient.DB()
	if err := db.WithContext(ctx).AutoMigrate(
		&entity.Author{},
		&entity.Book{},
		&entity.Chapter{},
		&entity.Story{},
		&entity.Part{},
		&entity.EnhancedChapter{},
		&entity.Scene{},
		&entity.MigrationRun{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migration completed.")

	// 4. 预检，输出源数据与迁移状态概览
	totalBooks, err := dataLayer.BookRepo.CountAll(ctx)
	if err != nil {
		log.Fatalf("failed to count books: %v", err)
	}

	var totalChapters int64
	if err := db.WithContext(ctx).Model(&entity.Chapter{}).Count(&totalChapters).Error; err != nil {
		log.Fatalf("failed to count chapters: %v", err)
	}

	var migratedStories int64
	if err := db.WithContext(ctx).Model(&entity.Story{}).Count(&migratedStories).Error; err != nil {
		log.Fatalf("failed to count stories: %v", err)
	}

	fmt.Printf("Source data: %d books, %d chapters.\n", totalBooks, totalChapters)
	fmt.Printf("Hierarchy data: %d stories already migrated.\n", migratedStories)

	latest, err := dataLayer.RunRepo.GetLatestRollbackable(ctx)
	if err != nil {
		log.Fatalf("failed to query migration runs: %v", err)
	}
	if latest != nil {
		fmt.Printf("Latest rollbackable run: %s (status: %s).\n", latest.ID, latest.Status)
	} else {
		fmt.Println("No rollbackable migration run found.")
	}

	fmt.Println("Bootstrap completed successfully.")
}
