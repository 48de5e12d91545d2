// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-migration/internal/domain/entity"
)

// SceneRepository 场景仓储接口
type SceneRepository interface {
	// CreateBatch 批量创建场景
	CreateBatch(ctx context.Context, scenes []*entity.Scene) error

	// ListByChapterID 获取层级章节的场景列表（按序排序）
	ListByChapterID(ctx context.Context, chapterID string) ([]*entity.Scene, error)

	// ListAfter 游标分页扫描全部场景（按 ID 排序）
	ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.Scene, error)

	// ListOrphaned 获取章节引用无法解析的场景
	ListOrphaned(ctx context.Context) ([]*entity.Scene, error)

	// SumByChapter 按层级章节汇总场景字数
	SumByChapter(ctx context.Context) ([]WordCountAggregate, error)

	// CountByRunID 统计某次迁移创建的场景数
	CountByRunID(ctx context.Context, runID string) (int64, error)

	// CountAll 统计场景总数
	CountAll(ctx context.Context) (int64, error)

	// DeleteByRunID 删除某次迁移创建的全部场景，返回删除行数
	DeleteByRunID(ctx context.Context, runID string) (int64, error)
}
