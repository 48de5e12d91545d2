// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/domain/repository"
)

// EnhancedChapterRepository 增强章节仓储实现
type EnhancedChapterRepository struct {
	client *Client
}

// NewEnhancedChapterRepository 创建增强章节仓储
func NewEnhancedChapterRepository(client *Client) *EnhancedChapterRepository {
	return &EnhancedChapterRepository{client: client}
}

// CreateBatch 批量创建增强章节
func (r *EnhancedChapterRepository) CreateBatch(ctx context.Context, chapters []*entity.EnhancedChapter) error {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.CreateBatch")
	defer span.End()

	if len(chapters) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapters).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create enhanced chapters: %w", err)
	}
	return nil
}

// ListByPartID 获取分部的增强章节列表
func (r *EnhancedChapterRepository) ListByPartID(ctx context.Context, partID string) ([]*entity.EnhancedChapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.ListByPartID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.EnhancedChapter
	if err := db.Where("part_id = ?", partID).
		Order("global_chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list enhanced chapters by part: %w", err)
	}
	return chapters, nil
}

// ListByRunID 获取某次迁移创建的增强章节，按全局章节号排序
func (r *EnhancedChapterRepository) ListByRunID(ctx context.Context, runID string) ([]*entity.EnhancedChapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.ListByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.EnhancedChapter
	if err := db.Where("migration_run_id = ?", runID).
		Order("global_chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list enhanced chapters by run: %w", err)
	}
	return chapters, nil
}

// ListAfter 游标分页扫描全部增强章节
func (r *EnhancedChapterRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.EnhancedChapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.ListAfter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.EnhancedChapter
	query := db.Order("id ASC").Limit(limit)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to scan enhanced chapters: %w", err)
	}
	return chapters, nil
}

// UpdateWordCount 更新聚合字数
func (r *EnhancedChapterRepository) UpdateWordCount(ctx context.Context, id string, wordCount int) error {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.UpdateWordCount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.EnhancedChapter{}).Where("id = ?", id).
		Update("word_count", wordCount).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update enhanced chapter word count: %w", err)
	}
	return nil
}

// SumByPart 按分部汇总章节字数
func (r *EnhancedChapterRepository) SumByPart(ctx context.Context) ([]repository.WordCountAggregate, error) {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.SumByPart")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var aggs []repository.WordCountAggregate
	if err := db.Model(&entity.EnhancedChapter{}).
		Select("part_id AS parent_id, COALESCE(SUM(word_count), 0) AS total").
		Group("part_id").
		Scan(&aggs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to sum enhanced chapter word counts: %w", err)
	}
	return aggs, nil
}

// CountMissingPartRefs 统计分部引用无法解析的增强章节数
func (r *EnhancedChapterRepository) CountMissingPartRefs(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.CountMissingPartRefs")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.EnhancedChapter{}).
		Where("NOT EXISTS (SELECT 1 FROM parts WHERE parts.id = enhanced_chapters.part_id)").
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count enhanced chapters with missing part refs: %w", err)
	}
	return count, nil
}

// CountByRunID 统计某次迁移创建的增强章节数
func (r *EnhancedChapterRepository) CountByRunID(ctx context.Context, runID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.CountByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.EnhancedChapter{}).Where("migration_run_id = ?", runID).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count enhanced chapters by run: %w", err)
	}
	return count, nil
}

// CountAll 统计增强章节总数
func (r *EnhancedChapterRepository) CountAll(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.CountAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.EnhancedChapter{}).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count enhanced chapters: %w", err)
	}
	return count, nil
}

// DeleteByRunID 删除某次迁移创建的全部增强章节
func (r *EnhancedChapterRepository) DeleteByRunID(ctx context.Context, runID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.EnhancedChapterRepository.DeleteByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Where("migration_run_id = ?", runID).Delete(&entity.EnhancedChapter{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete enhanced chapters by run: %w", result.Error)
	}
	return result.RowsAffected, nil
}
