// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/domain/repository"
)

// SceneRepository 场景仓储实现
type SceneRepository struct {
	client *Client
}

// NewSceneRepository 创建场景仓储
func NewSceneRepository(client *Client) *SceneRepository {
	return &SceneRepository{client: client}
}

// CreateBatch 批量创建场景
func (r *SceneRepository) CreateBatch(ctx context.Context, scenes []*entity.Scene) error {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.CreateBatch")
	defer span.End()

	if len(scenes) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(scenes).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create scenes: %w", err)
	}
	return nil
}

// ListByChapterID 获取增强章节的场景列表
func (r *SceneRepository) ListByChapterID(ctx context.Context, chapterID string) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListByChapterID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var scenes []*entity.Scene
	if err := db.Where("chapter_id = ?", chapterID).
		Order("sort_order ASC").
		Find(&scenes).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scenes by chapter: %w", err)
	}
	return scenes, nil
}

// ListAfter 游标分页扫描全部场景
func (r *SceneRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListAfter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var scenes []*entity.Scene
	query := db.Order("id ASC").Limit(limit)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Find(&scenes).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to scan scenes: %w", err)
	}
	return scenes, nil
}

// ListOrphaned 获取章节引用无法解析的场景
func (r *SceneRepository) ListOrphaned(ctx context.Context) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.ListOrphaned")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var scenes []*entity.Scene
	if err := db.
		Where("NOT EXISTS (SELECT 1 FROM enhanced_chapters WHERE enhanced_chapters.id = scenes.chapter_id)").
		Find(&scenes).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list orphaned scenes: %w", err)
	}
	return scenes, nil
}

// SumByChapter 按增强章节汇总场景字数
func (r *SceneRepository) SumByChapter(ctx context.Context) ([]repository.WordCountAggregate, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.SumByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var aggs []repository.WordCountAggregate
	if err := db.Model(&entity.Scene{}).
		Select("chapter_id AS parent_id, COALESCE(SUM(word_count), 0) AS total").
		Group("chapter_id").
		Scan(&aggs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to sum scene word counts: %w", err)
	}
	return aggs, nil
}

// CountByRunID 统计某次迁移创建的场景数
func (r *SceneRepository) CountByRunID(ctx context.Context, runID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.CountByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Scene{}).Where("migration_run_id = ?", runID).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count scenes by run: %w", err)
	}
	return count, nil
}

// CountAll 统计场景总数
func (r *SceneRepository) CountAll(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.CountAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Scene{}).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count scenes: %w", err)
	}
	return count, nil
}

// DeleteByRunID 删除某次迁移创建的全部场景
func (r *SceneRepository) DeleteByRunID(ctx context.Context, runID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.DeleteByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Where("migration_run_id = ?", runID).Delete(&entity.Scene{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete scenes by run: %w", result.Error)
	}
	return result.RowsAffected, nil
}
