// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/domain/repository"
)

// PartRepository 分部仓储实现
type PartRepository struct {
	client *Client
}

// NewPartRepository 创建分部仓储
func NewPartRepository(client *Client) *PartRepository {
	return &PartRepository{client: client}
}

// CreateBatch 批量创建分部
func (r *PartRepository) CreateBatch(ctx context.Context, parts []*entity.Part) error {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.CreateBatch")
	defer span.End()

	if len(parts) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(parts).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create parts: %w", err)
	}
	return nil
}

// ListByStoryID 获取故事的分部列表
func (r *PartRepository) ListByStoryID(ctx context.Context, storyID string) ([]*entity.Part, error) {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.ListByStoryID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var parts []*entity.Part
	if err := db.Where("story_id = ?", storyID).
		Order("part_number ASC").
		Find(&parts).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list parts by story: %w", err)
	}
	return parts, nil
}

// ListAfter 游标分页扫描全部分部
func (r *PartRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.Part, error) {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.ListAfter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var parts []*entity.Part
	query := db.Order("id ASC").Limit(limit)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Find(&parts).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to scan parts: %w", err)
	}
	return parts, nil
}

// UpdateWordCount 更新聚合字数
func (r *PartRepository) UpdateWordCount(ctx context.Context, id string, wordCount int) error {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.UpdateWordCount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Part{}).Where("id = ?", id).
		Update("word_count", wordCount).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update part word count: %w", err)
	}
	return nil
}

// SumByStory 按故事汇总分部字数
func (r *PartRepository) SumByStory(ctx context.Context) ([]repository.WordCountAggregate, error) {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.SumByStory")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var aggs []repository.WordCountAggregate
	if err := db.Model(&entity.Part{}).
		Select("story_id AS parent_id, COALESCE(SUM(word_count), 0) AS total").
		Group("story_id").
		Scan(&aggs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to sum part word counts: %w", err)
	}
	return aggs, nil
}

// CountMissingStoryRefs 统计故事引用无法解析的分部数
func (r *PartRepository) CountMissingStoryRefs(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.CountMissingStoryRefs")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Part{}).
		Where("NOT EXISTS (SELECT 1 FROM stories WHERE stories.id = parts.story_id)").
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count parts with missing story refs: %w", err)
	}
	return count, nil
}

// CountByRunID 统计某次迁移创建的分部数
func (r *PartRepository) CountByRunID(ctx context.Context, runID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.CountByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Part{}).Where("migration_run_id = ?", runID).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count parts by run: %w", err)
	}
	return count, nil
}

// CountAll 统计分部总数
func (r *PartRepository) CountAll(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.CountAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Part{}).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count parts: %w", err)
	}
	return count, nil
}

// DeleteByRunID 删除某次迁移创建的全部分部
func (r *PartRepository) DeleteByRunID(ctx context.Context, runID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.PartRepository.DeleteByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Where("migration_run_id = ?", runID).Delete(&entity.Part{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete parts by run: %w", result.Error)
	}
	return result.RowsAffected, nil
}
