// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-migration/internal/domain/entity"
)

// StoryRepository 故事仓储接口
type StoryRepository interface {
	// CreateBatch 批量创建故事
	CreateBatch(ctx context.Context, stories []*entity.Story) error

	// GetByBookID 根据书籍 ID 获取故事
	GetByBookID(ctx context.Context, bookID string) (*entity.Story, error)

	// ListAfter 游标分页扫描全部故事（按 ID 排序）
	ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.Story, error)

	// ListBookIDsWithStories 获取已存在故事的书籍 ID
	ListBookIDsWithStories(ctx context.Context) ([]string, error)

	// UpdateWordCount 更新聚合字数
	UpdateWordCount(ctx context.Context, id string, wordCount int) error

	// CountByRunID 统计某次迁移创建的故事数
	CountByRunID(ctx context.Context, runID string) (int64, error)

	// CountAll 统计故事总数
	CountAll(ctx context.Context) (int64, error)

	// DeleteByRunID 删除某次迁移创建的全部故事，返回删除行数
	DeleteByRunID(ctx context.Context, runID string) (int64, error)
}
