// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"z-novel-migration/internal/domain/entity"
)

// BookRepository 书籍仓储实现
type BookRepository struct {
	client *Client
}

// NewBookRepository 创建书籍仓储
func NewBookRepository(client *Client) *BookRepository {
	return &BookRepository{client: client}
}

// Create 创建书籍
func (r *BookRepository) Create(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(book).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取书籍
func (r *BookRepository) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var book entity.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// ListByIDs 根据 ID 列表获取书籍
func (r *BookRepository) ListByIDs(ctx context.Context, ids []string) ([]*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.ListByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	db := getDB(ctx, r.client.db)
	var books []*entity.Book
	if err := db.Where("id IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&books).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list books by ids: %w", err)
	}
	return books, nil
}

// ListUnmigrated 获取尚无层级数据的书籍
// 加载顺序决定全局章节编号顺序，必须稳定。
func (r *BookRepository) ListUnmigrated(ctx context.Context) ([]*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.ListUnmigrated")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var books []*entity.Book
	if err := db.Where("NOT EXISTS (SELECT 1 FROM stories WHERE stories.book_id = books.id)").
		Order("created_at ASC, id ASC").
		Find(&books).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list unmigrated books: %w", err)
	}
	return books, nil
}

// ListUntitled 获取标题为空的书籍
func (r *BookRepository) ListUntitled(ctx context.Context) ([]*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.ListUntitled")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var books []*entity.Book
	if err := db.Where("title IS NULL OR title = ''").
		Find(&books).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list untitled books: %w", err)
	}
	return books, nil
}

// ListMissingAuthorRefs 获取作者引用无法解析的书籍
func (r *BookRepository) ListMissingAuthorRefs(ctx context.Context) ([]*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.ListMissingAuthorRefs")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var books []*entity.Book
	if err := db.Where("NOT EXISTS (SELECT 1 FROM authors WHERE authors.id = books.author_id)").
		Find(&books).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list books with missing author refs: %w", err)
	}
	return books, nil
}

// CountAll 统计书籍总数
func (r *BookRepository) CountAll(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.CountAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Book{}).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}
