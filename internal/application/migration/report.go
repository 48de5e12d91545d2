package migration

import (
	"context"
	"fmt"
	"time"

	"z-novel-migration/internal/domain/entity"
)

// tuneSampleSize 批大小调优的采样书籍数
const tuneSampleSize = 5

// RunRowCounts 某次运行按快照标记统计的各层级行数
type RunRowCounts struct {
	Stories  int64 `json:"stories"`
	Parts    int64 `json:"parts"`
	Chapters int64 `json:"chapters"`
	Scenes   int64 `json:"scenes"`
}

// Total 四个层级的行数合计
func (c *RunRowCounts) Total() int64 {
	return c.Stories + c.Parts + c.Chapters + c.Scenes
}

// CountRunRows 统计某次运行创建且仍然在库的层级行数
// 迁移后应与运行台账的创建计数一致，回滚后应全部归零。
func (m *HierarchyMigration) CountRunRows(ctx context.Context, runID string) (*RunRowCounts, error) {
	ctx, span := tracer.Start(ctx, "migration.HierarchyMigration.CountRunRows")
	defer span.End()

	counts := &RunRowCounts{}
	var err error
	if counts.Stories, err = m.stories.CountByRunID(ctx, runID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if counts.Parts, err = m.parts.CountByRunID(ctx, runID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if counts.Chapters, err = m.enhanced.CountByRunID(ctx, runID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if counts.Scenes, err = m.scenes.CountByRunID(ctx, runID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return counts, nil
}

// ListRunChapters 获取某次运行创建的层级章节，按全局序号升序
func (m *HierarchyMigration) ListRunChapters(ctx context.Context, runID string) ([]*entity.EnhancedChapter, error) {
	run, err := m.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("migration run %s not found", runID)
	}
	return m.enhanced.ListByRunID(ctx, runID)
}

// ChapterNode 层级视图中的章节节点
type ChapterNode struct {
	Chapter *entity.EnhancedChapter `json:"chapter"`
	Scenes  []*entity.Scene         `json:"scenes"`
}

// PartNode 层级视图中的分部节点
type PartNode struct {
	Part     *entity.Part   `json:"part"`
	Chapters []*ChapterNode `json:"chapters"`
}

// BookHierarchy 一本书迁移后的完整层级视图
type BookHierarchy struct {
	BookID string        `json:"book_id"`
	Story  *entity.Story `json:"story"`
	Parts  []*PartNode   `json:"parts"`
}

// InspectBook 装配一本书迁移后的层级树
// 未迁移的书返回 nil 视图，不算错误。
func (m *HierarchyMigration) InspectBook(ctx context.Context, bookID string) (*BookHierarchy, error) {
	ctx, span := tracer.Start(ctx, "migration.HierarchyMigration.InspectBook")
	defer span.End()

	story, err := m.stories.GetByBookID(ctx, bookID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if story == nil {
		return nil, nil
	}

	view := &BookHierarchy{BookID: bookID, Story: story}

	parts, err := m.parts.ListByStoryID(ctx, story.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, part := range parts {
		node := &PartNode{Part: part}

		chapters, err := m.enhanced.ListByPartID(ctx, part.ID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for _, ch := range chapters {
			scenes, err := m.scenes.ListByChapterID(ctx, ch.ID)
			if err != nil {
				span.RecordError(err)
				return nil, err
			}
			node.Chapters = append(node.Chapters, &ChapterNode{Chapter: ch, Scenes: scenes})
		}
		view.Parts = append(view.Parts, node)
	}
	return view, nil
}

// TuneBatchSize 用小样本的转换计时推算接近目标批耗时的批大小
// 未配置目标耗时、没有待迁移书籍或采样失败时返回夹取后的默认值。
// 采样只做纯计算的迁移计划，不落任何行。
func (m *HierarchyMigration) TuneBatchSize(ctx context.Context, defaultSize int, target time.Duration) int {
	if target <= 0 {
		return clampBatchSize(defaultSize)
	}

	books, err := m.books.ListUnmigrated(ctx)
	if err != nil || len(books) == 0 {
		return clampBatchSize(defaultSize)
	}
	if len(books) > tuneSampleSize {
		books = books[:tuneSampleSize]
	}

	chaptersByBook, err := m.loadChapters(ctx, books)
	if err != nil {
		return clampBatchSize(defaultSize)
	}

	return OptimizeBatchSize(ctx, books, defaultSize, target, func(ctx context.Context, sample []*entity.Book) error {
		next := 1
		for _, book := range sample {
			plan, err := planBook(book, chaptersByBook[book.ID], next, "")
			if err != nil {
				return err
			}
			next = plan.nextNumber
		}
		return nil
	})
}
