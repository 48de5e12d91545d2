// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-migration/internal/domain/entity"
)

// BookRepository 书籍仓储接口
type BookRepository interface {
	// Create 创建书籍
	Create(ctx context.Context, book *entity.Book) error

	// GetByID 根据 ID 获取书籍
	GetByID(ctx context.Context, id string) (*entity.Book, error)

	// ListByIDs 根据 ID 列表获取书籍（按创建顺序）
	ListByIDs(ctx context.Context, ids []string) ([]*entity.Book, error)

	// ListUnmigrated 获取尚无层级数据的书籍（按创建顺序）
	ListUnmigrated(ctx context.Context) ([]*entity.Book, error)

	// ListUntitled 获取标题为空的书籍
	ListUntitled(ctx context.Context) ([]*entity.Book, error)

	// ListMissingAuthorRefs 获取作者引用无法解析的书籍
	ListMissingAuthorRefs(ctx context.Context) ([]*entity.Book, error)

	// CountAll 统计书籍总数
	CountAll(ctx context.Context) (int64, error)
}
