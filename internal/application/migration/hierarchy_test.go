package migration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-migration/internal/domain/entity"
	apperrors "z-novel-migration/pkg/errors"
)

// assertHierarchyConsistent 自底向上校验每层聚合字数与场景重算一致
func assertHierarchyConsistent(t *testing.T, h *harness) {
	t.Helper()

	var scenes []*entity.Scene
	require.NoError(t, h.db.Find(&scenes).Error)
	sceneSumByChapter := map[string]int{}
	for _, s := range scenes {
		assert.Equal(t, CountWords(s.Content), s.WordCount, "scene %s word count", s.ID)
		sceneSumByChapter[s.ChapterID] += s.WordCount
	}

	var chapters []*entity.EnhancedChapter
	require.NoError(t, h.db.Find(&chapters).Error)
	chapterSumByPart := map[string]int{}
	for _, ch := range chapters {
		assert.Equal(t, sceneSumByChapter[ch.ID], ch.WordCount, "chapter %s word count", ch.ID)
		chapterSumByPart[ch.PartID] += ch.WordCount
	}

	var parts []*entity.Part
	require.NoError(t, h.db.Find(&parts).Error)
	partSumByStory := map[string]int{}
	for _, p := range parts {
		assert.Equal(t, chapterSumByPart[p.ID], p.WordCount, "part %s word count", p.ID)
		partSumByStory[p.StoryID] += p.WordCount
	}

	var stories []*entity.Story
	require.NoError(t, h.db.Find(&stories).Error)
	for _, s := range stories {
		assert.Equal(t, partSumByStory[s.ID], s.WordCount, "story %s word count", s.ID)
	}
}

func TestMigrateToHierarchySimple(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book1 := h.seedBook(author.ID, "First Book")
	h.seedChapter(book1.ID, 1, "Opening", 150)
	h.seedChapter(book1.ID, 2, "Closing", 200)
	book2 := h.seedBook(author.ID, "Second Book")
	h.seedChapter(book2.ID, 1, "Only Chapter", 175)

	result := h.migrate(Options{BatchSize: 10, ValidateBeforeMigration: true, RollbackOnError: true})

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.DryRun)
	assert.Equal(t, 2, result.MigratedBooks)
	assert.Equal(t, 3, result.MigratedChapters)
	assert.Equal(t, 2, result.CreatedStories)
	assert.Equal(t, 2, result.CreatedParts)
	assert.Equal(t, 3, result.CreatedScenes)
	assert.Zero(t, result.SkippedBooks)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.ProcessedInBatches)

	stories, parts, chapters, scenes := h.hierarchyRowCounts()
	assert.EqualValues(t, 2, stories)
	assert.EqualValues(t, 2, parts)
	assert.EqualValues(t, 3, chapters)
	assert.EqualValues(t, 3, scenes)

	var story1 entity.Story
	require.NoError(t, h.db.Where("book_id = ?", book1.ID).First(&story1).Error)
	assert.Equal(t, entity.DefaultStoryTitle, story1.Title)
	assert.Equal(t, 350, story1.WordCount)
	assert.Equal(t, result.RunID, story1.MigrationRunID)

	var story2 entity.Story
	require.NoError(t, h.db.Where("book_id = ?", book2.ID).First(&story2).Error)
	assert.Equal(t, 175, story2.WordCount)

	var part1 entity.Part
	require.NoError(t, h.db.Where("story_id = ?", story1.ID).First(&part1).Error)
	assert.Equal(t, entity.DefaultPartTitle, part1.Title)
	assert.Equal(t, 1, part1.PartNumber)
	assert.Equal(t, 350, part1.WordCount)

	// 本次运行创建的每一行都带快照标记
	var tagged int64
	require.NoError(t, h.db.Model(&entity.Scene{}).
		Where("migration_run_id = ?", result.RunID).
		Count(&tagged).Error)
	assert.EqualValues(t, 3, tagged)

	assertHierarchyConsistent(t, h)

	run, err := h.runs.GetByID(context.Background(), result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, entity.MigrationRunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.TotalBooks)
	assert.Equal(t, 2, run.MigratedBooks)
	assert.Equal(t, 3, run.CreatedScenes)
}

func TestMigrateToHierarchyGlobalNumberingAcrossBatches(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	var wantTitles []string
	for i := 1; i <= 5; i++ {
		book := h.seedBook(author.ID, fmt.Sprintf("Book %d", i))
		for n := 1; n <= 2; n++ {
			title := fmt.Sprintf("Book %d Chapter %d", i, n)
			h.seedChapter(book.ID, n, title, 10)
			wantTitles = append(wantTitles, title)
		}
	}

	result := h.migrate(Options{BatchSize: 2, RollbackOnError: true})

	assert.True(t, result.Success)
	assert.Equal(t, 5, result.MigratedBooks)
	assert.Equal(t, 10, result.MigratedChapters)
	assert.Equal(t, 3, result.ProcessedInBatches)

	// 全局章节号跨批次连续：按书籍创建顺序、书内章节序号紧密排布
	var chapters []*entity.EnhancedChapter
	require.NoError(t, h.db.Order("global_chapter_number ASC").Find(&chapters).Error)
	require.Len(t, chapters, 10)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.GlobalChapterNumber)
		assert.Equal(t, wantTitles[i], ch.Title)
	}
}

func TestMigrateToHierarchySkipsMigratedBooks(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book1 := h.seedBook(author.ID, "Book One")
	h.seedChapter(book1.ID, 1, "One", 10)
	book2 := h.seedBook(author.ID, "Book Two")
	h.seedChapter(book2.ID, 1, "Two", 10)

	first := h.migrate(Options{BatchSize: 10, RollbackOnError: true})
	require.True(t, first.Success)
	require.Equal(t, 2, first.MigratedBooks)

	book3 := h.seedBook(author.ID, "Book Three")
	h.seedChapter(book3.ID, 1, "Three", 10)
	h.seedChapter(book3.ID, 2, "Four", 10)

	second := h.migrate(Options{BatchSize: 10, RollbackOnError: true})

	assert.True(t, second.Success)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 1, second.MigratedBooks)
	assert.Equal(t, 2, second.SkippedBooks)
	assert.Equal(t, 2, second.MigratedChapters)

	stories, parts, chapters, scenes := h.hierarchyRowCounts()
	assert.EqualValues(t, 3, stories)
	assert.EqualValues(t, 3, parts)
	assert.EqualValues(t, 4, chapters)
	assert.EqualValues(t, 4, scenes)

	// 每次运行的全局章节号独立，从 1 重新开始
	var numbers []int
	require.NoError(t, h.db.Model(&entity.EnhancedChapter{}).
		Where("migration_run_id = ?", second.RunID).
		Order("global_chapter_number ASC").
		Pluck("global_chapter_number", &numbers).Error)
	assert.Equal(t, []int{1, 2}, numbers)
}

func TestMigrateToHierarchyAbortsWhenValidationFails(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Good Book")
	h.seedChapter(book.ID, 1, "Fine", 10)
	h.seedChapter("no-such-book", 1, "Orphan", 10)

	result := h.migrate(Options{BatchSize: 10, ValidateBeforeMigration: true, RollbackOnError: true})

	assert.False(t, result.Success)
	assert.Empty(t, result.RunID)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "references missing book")

	// 校验不通过时一行都不写，台账也不留记录
	stories, parts, chapters, scenes := h.hierarchyRowCounts()
	assert.Zero(t, stories)
	assert.Zero(t, parts)
	assert.Zero(t, chapters)
	assert.Zero(t, scenes)
	assert.Zero(t, h.countRows(&entity.MigrationRun{}))
}

func TestMigrateToHierarchyRollsBackOnBatchFailure(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book1 := h.seedBook(author.ID, "Valid Book")
	h.seedChapter(book1.ID, 1, "Fine", 20)
	book2 := h.seedBook(author.ID, "Broken Book")
	h.seedRawChapter(book2.ID, 1, "Corrupt", "{not json", 0)

	result := h.migrate(Options{BatchSize: 1, RollbackOnError: true})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], fmt.Sprintf("book %s chapter 1", book2.ID))
	// 第一批已提交，第二批在规划阶段失败
	assert.Equal(t, 1, result.MigratedBooks)
	assert.Equal(t, 1, result.ProcessedInBatches)

	// 自动回滚清掉了带本次运行标记的全部行
	stories, parts, chapters, scenes := h.hierarchyRowCounts()
	assert.Zero(t, stories)
	assert.Zero(t, parts)
	assert.Zero(t, chapters)
	assert.Zero(t, scenes)

	// 源数据原样保留
	assert.EqualValues(t, 2, h.countRows(&entity.Book{}))
	assert.EqualValues(t, 2, h.countRows(&entity.Chapter{}))

	run, err := h.runs.GetByID(context.Background(), result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, entity.MigrationRunStatusRolledBack, run.Status)
	assert.NotEmpty(t, run.ErrorMessage)
}

func TestMigrateToHierarchyKeepsRowsWhenRollbackDisabled(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book1 := h.seedBook(author.ID, "Valid Book")
	h.seedChapter(book1.ID, 1, "Fine", 20)
	book2 := h.seedBook(author.ID, "Broken Book")
	h.seedRawChapter(book2.ID, 1, "Corrupt", "{not json", 0)

	result := h.migrate(Options{BatchSize: 1, RollbackOnError: false})

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)

	// 带标记的部分行保留，等待人工决定
	stories, parts, chapters, scenes := h.hierarchyRowCounts()
	assert.EqualValues(t, 1, stories)
	assert.EqualValues(t, 1, parts)
	assert.EqualValues(t, 1, chapters)
	assert.EqualValues(t, 1, scenes)

	run, err := h.runs.GetByID(context.Background(), result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, entity.MigrationRunStatusFailed, run.Status)

	// 失败的运行之后仍可手动回滚
	rb, err := h.migrator.RollbackRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.True(t, rb.Success)
	assert.True(t, rb.DataRestored)
	require.Len(t, rb.RollbackSteps, 4)
	assert.Equal(t, "scenes: deleted 1 rows", rb.RollbackSteps[0])
	assert.Equal(t, "stories: deleted 1 rows", rb.RollbackSteps[3])

	stories, parts, chapters, scenes = h.hierarchyRowCounts()
	assert.Zero(t, stories)
	assert.Zero(t, parts)
	assert.Zero(t, chapters)
	assert.Zero(t, scenes)
}

func TestMigrateToHierarchyDryRun(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book1 := h.seedBook(author.ID, "Book One")
	h.seedChapter(book1.ID, 1, "One", 100)
	h.seedChapter(book1.ID, 2, "Two", 50)
	book2 := h.seedBook(author.ID, "Book Two")
	h.seedChapter(book2.ID, 1, "Three", 75)

	result := h.migrate(Options{BatchSize: 10, DryRun: true, ValidateBeforeMigration: true})

	assert.True(t, result.Success)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.MigratedBooks)
	assert.Equal(t, 3, result.MigratedChapters)
	assert.Equal(t, 2, result.CreatedStories)
	assert.Equal(t, 2, result.CreatedParts)
	assert.Equal(t, 3, result.CreatedScenes)

	// 空跑不落任何行，运行台账也不留记录
	stories, parts, chapters, scenes := h.hierarchyRowCounts()
	assert.Zero(t, stories)
	assert.Zero(t, parts)
	assert.Zero(t, chapters)
	assert.Zero(t, scenes)
	assert.Zero(t, h.countRows(&entity.MigrationRun{}))
}

func TestMigrateToHierarchyEmptyBook(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Empty Shelf")

	result := h.migrate(Options{BatchSize: 10, ValidateBeforeMigration: true, RollbackOnError: true})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.MigratedBooks)
	assert.Zero(t, result.MigratedChapters)
	assert.Equal(t, 1, result.CreatedStories)
	assert.Equal(t, 1, result.CreatedParts)
	assert.Zero(t, result.CreatedScenes)

	// 零章节的书仍产出故事与分部，聚合字数为零
	var story entity.Story
	require.NoError(t, h.db.Where("book_id = ?", book.ID).First(&story).Error)
	assert.Zero(t, story.WordCount)

	var part entity.Part
	require.NoError(t, h.db.Where("story_id = ?", story.ID).First(&part).Error)
	assert.Zero(t, part.WordCount)
	assert.Zero(t, h.countRows(&entity.Scene{}))
}

func TestMigrateToHierarchyExplicitBookIDs(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book1 := h.seedBook(author.ID, "Book One")
	h.seedChapter(book1.ID, 1, "One", 10)
	book2 := h.seedBook(author.ID, "Book Two")
	h.seedChapter(book2.ID, 1, "Two", 10)
	book3 := h.seedBook(author.ID, "Book Three")
	h.seedChapter(book3.ID, 1, "Three", 10)

	result := h.migrate(Options{
		BatchSize:       10,
		RollbackOnError: true,
		BookIDs:         []string{book1.ID, book3.ID},
	})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.MigratedBooks)

	var bookIDs []string
	require.NoError(t, h.db.Model(&entity.Story{}).Pluck("book_id", &bookIDs).Error)
	assert.ElementsMatch(t, []string{book1.ID, book3.ID}, bookIDs)

	// 再次指定时，已迁移的书计入跳过
	second := h.migrate(Options{
		BatchSize:       10,
		RollbackOnError: true,
		BookIDs:         []string{book1.ID, book2.ID},
	})
	assert.True(t, second.Success)
	assert.Equal(t, 1, second.MigratedBooks)
	assert.Equal(t, 1, second.SkippedBooks)
}

func TestMigrateToHierarchyUnknownBookID(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Book One")
	h.seedChapter(book.ID, 1, "One", 10)

	result := h.migrate(Options{
		BatchSize: 10,
		BookIDs:   []string{book.ID, "missing-id"},
	})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors, "book missing-id not found")
	assert.Empty(t, result.RunID)

	// 存在的那本也不迁移，整个请求被整体拒绝
	assert.Zero(t, h.countRows(&entity.Story{}))
	assert.Zero(t, h.countRows(&entity.MigrationRun{}))
}

func TestMigrateToHierarchyDuplicateBookIDs(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Book One")
	h.seedChapter(book.ID, 1, "One", 10)

	// 重复指定同一本书不算缺失，也只迁移一次
	result := h.migrate(Options{
		BatchSize:       10,
		RollbackOnError: true,
		BookIDs:         []string{book.ID, book.ID, book.ID},
	})

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.MigratedBooks)
	assert.EqualValues(t, 1, h.countRows(&entity.Story{}))
}

func TestMigrateToHierarchyFailureSettlesProgress(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Broken Book")
	h.seedRawChapter(book.ID, 1, "Corrupt", "{not json", 0)

	result := h.migrate(Options{BatchSize: 1, RollbackOnError: true})
	require.False(t, result.Success)

	// 失败后进度收敛到终态，不再显示运行中
	snapshot := h.migrator.GetMigrationProgress()
	assert.False(t, snapshot.IsRunning)
	assert.Zero(t, snapshot.EstimatedTimeRemaining)
}

func TestMigrateToHierarchyRejectsConcurrentRun(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Book One")
	h.seedChapter(book.ID, 1, "One", 10)

	active := entity.NewMigrationRun(10, false)
	active.Start(3)
	require.NoError(t, h.runs.Create(context.Background(), active))

	_, err := h.migrator.MigrateToHierarchy(context.Background(), Options{BatchSize: 10})

	require.Error(t, err)
	require.True(t, apperrors.IsAppError(err))
	assert.Equal(t, apperrors.CodeRunActive, apperrors.AsAppError(err).Code)

	// 空跑不受活跃运行限制
	dry := h.migrate(Options{BatchSize: 10, DryRun: true})
	assert.True(t, dry.Success)
}

func TestRollbackMigrationWithoutSnapshot(t *testing.T) {
	h := newHarness(t)

	result, err := h.migrator.RollbackMigration(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.DataRestored)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "no rollback snapshot available", result.Errors[0])
}

func TestRollbackRunNotFound(t *testing.T) {
	h := newHarness(t)

	result, err := h.migrator.RollbackRun(context.Background(), "missing-run")

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "migration run missing-run not found", result.Errors[0])
}

func TestRollbackMigrationRemovesHierarchyRows(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book1 := h.seedBook(author.ID, "Book One")
	h.seedChapter(book1.ID, 1, "One", 100)
	h.seedChapter(book1.ID, 2, "Two", 50)
	book2 := h.seedBook(author.ID, "Book Two")
	h.seedChapter(book2.ID, 1, "Three", 75)

	result := h.migrate(Options{BatchSize: 10, RollbackOnError: true})
	require.True(t, result.Success)

	ok, err := h.migrator.HasRollbackSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	rb, err := h.migrator.RollbackMigration(context.Background())
	require.NoError(t, err)

	assert.True(t, rb.Success)
	assert.True(t, rb.DataRestored)
	assert.Equal(t, result.RunID, rb.RunID)
	assert.Empty(t, rb.Errors)
	assert.Equal(t, []string{
		"scenes: deleted 3 rows",
		"chapters: deleted 3 rows",
		"parts: deleted 2 rows",
		"stories: deleted 2 rows",
	}, rb.RollbackSteps)

	stories, parts, chapters, scenes := h.hierarchyRowCounts()
	assert.Zero(t, stories)
	assert.Zero(t, parts)
	assert.Zero(t, chapters)
	assert.Zero(t, scenes)
	assert.EqualValues(t, 2, h.countRows(&entity.Book{}))
	assert.EqualValues(t, 3, h.countRows(&entity.Chapter{}))

	run, err := h.runs.GetByID(context.Background(), result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, entity.MigrationRunStatusRolledBack, run.Status)

	ok, err = h.migrator.HasRollbackSnapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// 回滚后的书恢复未迁移状态，可以重新跑
	again := h.migrate(Options{BatchSize: 10, RollbackOnError: true})
	assert.True(t, again.Success)
	assert.Equal(t, 2, again.MigratedBooks)
}

func TestRollbackRunRejectsAlreadyRolledBack(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Book One")
	h.seedChapter(book.ID, 1, "One", 10)

	result := h.migrate(Options{BatchSize: 10, RollbackOnError: true})
	require.True(t, result.Success)

	first, err := h.migrator.RollbackRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := h.migrator.RollbackRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.False(t, second.Success)
	require.NotEmpty(t, second.Errors)
	assert.Contains(t, second.Errors[0], "has no rollback snapshot (status rolled_back)")
}

func TestRollbackMigrationAfterInterruptedRun(t *testing.T) {
	h := newHarness(t)

	run := entity.NewMigrationRun(10, false)
	run.Start(1)
	require.NoError(t, h.runs.Create(context.Background(), run))

	// 模拟进程中断：部分层级行已带快照标记落库
	story := entity.NewStory("book-x", run.ID, entity.DefaultStoryTitle, 0)
	require.NoError(t, h.db.Create(story).Error)
	part := entity.NewPart(story.ID, run.ID, entity.DefaultPartTitle, 1)
	require.NoError(t, h.db.Create(part).Error)
	chapter := entity.NewEnhancedChapter(part.ID, "chapter-x", run.ID, "Interrupted", 1)
	require.NoError(t, h.db.Create(chapter).Error)
	scene := entity.NewScene(chapter.ID, "chapter-x", run.ID, 0, "some text here", 3)
	require.NoError(t, h.db.Create(scene).Error)

	rb, err := h.migrator.RollbackMigration(context.Background())
	require.NoError(t, err)

	assert.True(t, rb.Success)
	assert.Equal(t, run.ID, rb.RunID)

	stories, parts, chapters, scenes := h.hierarchyRowCounts()
	assert.Zero(t, stories)
	assert.Zero(t, parts)
	assert.Zero(t, chapters)
	assert.Zero(t, scenes)

	updated, err := h.runs.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, entity.MigrationRunStatusRolledBack, updated.Status)
}

func TestMigrateToHierarchyProgressCallbacks(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	for i := 1; i <= 2; i++ {
		book := h.seedBook(author.ID, fmt.Sprintf("Book %d", i))
		h.seedChapter(book.ID, 1, "Chapter", 10)
	}

	var updates []ProgressUpdate
	h.migrator.OnProgressUpdate(func(u ProgressUpdate) {
		updates = append(updates, u)
	})

	result := h.migrate(Options{BatchSize: 1, ValidateBeforeMigration: true, RollbackOnError: true})
	require.True(t, result.Success)

	// 校验阶段、迁移开始、两个批次、收尾各上报一次
	require.Len(t, updates, 5)

	assert.Equal(t, "validation", updates[0].Stage)
	assert.Empty(t, updates[0].RunID)

	assert.Equal(t, "migration", updates[1].Stage)
	assert.Equal(t, result.RunID, updates[1].RunID)
	assert.Equal(t, 2, updates[1].TotalItems)
	assert.Zero(t, updates[1].CompletedItems)

	assert.Equal(t, 1, updates[2].CompletedItems)
	assert.InDelta(t, 50, updates[2].Percentage, 0.01)

	last := updates[len(updates)-1]
	assert.Equal(t, result.RunID, last.RunID)
	assert.Equal(t, 2, last.CompletedItems)
	assert.InDelta(t, 100, last.Percentage, 0.01)

	snapshot := h.migrator.GetMigrationProgress()
	assert.False(t, snapshot.IsRunning)
	assert.InDelta(t, 100, snapshot.Percentage, 0.01)
}
