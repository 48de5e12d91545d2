// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"z-novel-migration/internal/domain/entity"
)

// StoryRepository 故事仓储实现
type StoryRepository struct {
	client *Client
}

// NewStoryRepository 创建故事仓储
func NewStoryRepository(client *Client) *StoryRepository {
	return &StoryRepository{client: client}
}

// CreateBatch 批量创建故事
func (r *StoryRepository) CreateBatch(ctx context.Context, stories []*entity.Story) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.CreateBatch")
	defer span.End()

	if len(stories) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(stories).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create stories: %w", err)
	}
	return nil
}

// GetByBookID 根据书籍 ID 获取故事
func (r *StoryRepository) GetByBookID(ctx context.Context, bookID string) (*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.GetByBookID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var story entity.Story
	if err := db.First(&story, "book_id = ?", bookID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get story by book: %w", err)
	}
	return &story, nil
}

// ListAfter 游标分页扫描全部故事
func (r *StoryRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.ListAfter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var stories []*entity.Story
	query := db.Order("id ASC").Limit(limit)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Find(&stories).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to scan stories: %w", err)
	}
	return stories, nil
}

// ListBookIDsWithStories 获取已存在故事的书籍 ID
func (r *StoryRepository) ListBookIDsWithStories(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.ListBookIDsWithStories")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var bookIDs []string
	if err := db.Model(&entity.Story{}).
		Distinct("book_id").
		Order("book_id ASC").
		Pluck("book_id", &bookIDs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list book ids with stories: %w", err)
	}
	return bookIDs, nil
}

// UpdateWordCount 更新聚合字数
func (r *StoryRepository) UpdateWordCount(ctx context.Context, id string, wordCount int) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.UpdateWordCount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Story{}).Where("id = ?", id).
		Update("word_count", wordCount).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update story word count: %w", err)
	}
	return nil
}

// CountByRunID 统计某次迁移创建的故事数
func (r *StoryRepository) CountByRunID(ctx context.Context, runID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.CountByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Story{}).Where("migration_run_id = ?", runID).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count stories by run: %w", err)
	}
	return count, nil
}

// CountAll 统计故事总数
func (r *StoryRepository) CountAll(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.CountAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Story{}).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count stories: %w", err)
	}
	return count, nil
}

// DeleteByRunID 删除某次迁移创建的全部故事
func (r *StoryRepository) DeleteByRunID(ctx context.Context, runID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.DeleteByRunID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Where("migration_run_id = ?", runID).Delete(&entity.Story{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete stories by run: %w", result.Error)
	}
	return result.RowsAffected, nil
}
