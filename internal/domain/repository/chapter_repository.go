// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-migration/internal/domain/entity"
)

// ChapterNumberDuplicate 重复章节序号
type ChapterNumberDuplicate struct {
	BookID        string `json:"book_id"`
	ChapterNumber int    `json:"chapter_number"`
	Count         int    `json:"count"`
}

// ChapterRepository 旧模型章节仓储接口
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// ListByBookID 获取书籍章节列表（按章节序号排序）
	ListByBookID(ctx context.Context, bookID string) ([]*entity.Chapter, error)

	// ListByBookIDs 批量获取多本书的章节（按 book_id, chapter_number 排序）
	ListByBookIDs(ctx context.Context, bookIDs []string) ([]*entity.Chapter, error)

	// ListAfter 游标分页扫描全部章节（按 ID 排序）
	ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.Chapter, error)

	// ListMissingBookRefs 获取书籍引用无法解析的章节
	ListMissingBookRefs(ctx context.Context) ([]*entity.Chapter, error)

	// ListDuplicateNumbers 获取同书内重复的章节序号
	ListDuplicateNumbers(ctx context.Context) ([]ChapterNumberDuplicate, error)

	// ListUnmapped 获取已迁移书籍中缺少层级章节映射的章节
	ListUnmapped(ctx context.Context) ([]*entity.Chapter, error)

	// CountAll 统计章节总数
	CountAll(ctx context.Context) (int64, error)
}
