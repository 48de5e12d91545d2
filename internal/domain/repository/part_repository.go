// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-migration/internal/domain/entity"
)

// PartRepository 分部仓储接口
type PartRepository interface {
	// CreateBatch 批量创建分部
	CreateBatch(ctx context.Context, parts []*entity.Part) error

	// ListByStoryID 获取故事的分部列表（按分部序号排序）
	ListByStoryID(ctx context.Context, storyID string) ([]*entity.Part, error)

	// ListAfter 游标分页扫描全部分部（按 ID 排序）
	ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.Part, error)

	// UpdateWordCount 更新聚合字数
	UpdateWordCount(ctx context.Context, id string, wordCount int) error

	// SumByStory 按故事汇总分部字数
	SumByStory(ctx context.Context) ([]WordCountAggregate, error)

	// CountMissingStoryRefs 统计故事引用无法解析的分部数
	CountMissingStoryRefs(ctx context.Context) (int64, error)

	// CountByRunID 统计某次迁移创建的分部数
	CountByRunID(ctx context.Context, runID string) (int64, error)

	// CountAll 统计分部总数
	CountAll(ctx context.Context) (int64, error)

	// DeleteByRunID 删除某次迁移创建的全部分部，返回删除行数
	DeleteByRunID(ctx context.Context, runID string) (int64, error)
}
