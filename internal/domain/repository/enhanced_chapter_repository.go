// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-migration/internal/domain/entity"
)

// EnhancedChapterRepository 层级章节仓储接口
type EnhancedChapterRepository interface {
	// CreateBatch 批量创建层级章节
	CreateBatch(ctx context.Context, chapters []*entity.EnhancedChapter) error

	// ListByPartID 获取分部的章节列表（按全局序号排序）
	ListByPartID(ctx context.Context, partID string) ([]*entity.EnhancedChapter, error)

	// ListByRunID 获取某次迁移创建的章节（按全局序号排序）
	ListByRunID(ctx context.Context, runID string) ([]*entity.EnhancedChapter, error)

	// ListAfter 游标分页扫描全部层级章节（按 ID 排序）
	ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.EnhancedChapter, error)

	// UpdateWordCount 更新聚合字数
	UpdateWordCount(ctx context.Context, id string, wordCount int) error

	// SumByPart 按分部汇总章节字数
	SumByPart(ctx context.Context) ([]WordCountAggregate, error)

	// CountMissingPartRefs 统计分部引用无法解析的章节数
	CountMissingPartRefs(ctx context.Context) (int64, error)

	// CountByRunID 统计某次迁移创建的章节数
	CountByRunID(ctx context.Context, runID string) (int64, error)

	// CountAll 统计层级章节总数
	CountAll(ctx context.Context) (int64, error)

	// DeleteByRunID 删除某次迁移创建的全部章节，返回删除行数
	DeleteByRunID(ctx context.Context, runID string) (int64, error)
}
