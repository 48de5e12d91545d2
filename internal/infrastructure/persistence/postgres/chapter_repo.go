// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/domain/repository"
)

// ChapterRepository 旧模型章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Create 创建章节
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// ListByBookID 获取书籍章节列表
func (r *ChapterRepository) ListByBookID(ctx context.Context, bookID string) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByBookID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("book_id = ?", bookID).
		Order("chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters by book: %w", err)
	}
	return chapters, nil
}

// ListByBookIDs 批量获取多本书的章节
// 排序 (book_id, chapter_number) 与迁移的全局编号顺序一致。
func (r *ChapterRepository) ListByBookIDs(ctx context.Context, bookIDs []string) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByBookIDs")
	defer span.End()

	if len(bookIDs) == 0 {
		return nil, nil
	}

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("book_id IN ?", bookIDs).
		Order("book_id ASC, chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters by books: %w", err)
	}
	return chapters, nil
}

// ListAfter 游标分页扫描全部章节
func (r *ChapterRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListAfter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	query := db.Order("id ASC").Limit(limit)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to scan chapters: %w", err)
	}
	return chapters, nil
}

// ListMissingBookRefs 获取书籍引用无法解析的章节
func (r *ChapterRepository) ListMissingBookRefs(ctx context.Context) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListMissingBookRefs")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("NOT EXISTS (SELECT 1 FROM books WHERE books.id = chapters.book_id)").
		Order("book_id ASC, chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters with missing book refs: %w", err)
	}
	return chapters, nil
}

// ListDuplicateNumbers 获取同书内重复的章节序号
func (r *ChapterRepository) ListDuplicateNumbers(ctx context.Context) ([]repository.ChapterNumberDuplicate, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListDuplicateNumbers")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var dups []repository.ChapterNumberDuplicate
	if err := db.Model(&entity.Chapter{}).
		Select("book_id, chapter_number, COUNT(*) AS count").
		Group("book_id, chapter_number").
		Having("COUNT(*) > 1").
		Scan(&dups).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list duplicate chapter numbers: %w", err)
	}
	return dups, nil
}

// ListUnmapped 获取已迁移书籍中缺少层级章节映射的章节
func (r *ChapterRepository) ListUnmapped(ctx context.Context) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListUnmapped")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("book_id IN (SELECT book_id FROM stories)").
		Where("NOT EXISTS (SELECT 1 FROM enhanced_chapters WHERE enhanced_chapters.source_chapter_id = chapters.id)").
		Order("book_id ASC, chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list unmapped chapters: %w", err)
	}
	return chapters, nil
}

// CountAll 统计章节总数
func (r *ChapterRepository) CountAll(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Chapter{}).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return count, nil
}
