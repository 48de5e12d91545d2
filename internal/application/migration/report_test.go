package migration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-migration/internal/domain/entity"
)

func TestCountRunRowsTracksRunLifecycle(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book1 := h.seedBook(author.ID, "Book One")
	h.seedChapter(book1.ID, 1, "One", 10)
	h.seedChapter(book1.ID, 2, "Two", 10)
	book2 := h.seedBook(author.ID, "Book Two")
	h.seedChapter(book2.ID, 1, "Three", 10)

	result := h.migrate(Options{BatchSize: 10, RollbackOnError: true})
	require.True(t, result.Success)

	counts, err := h.migrator.CountRunRows(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts.Stories)
	assert.EqualValues(t, 2, counts.Parts)
	assert.EqualValues(t, 3, counts.Chapters)
	assert.EqualValues(t, 3, counts.Scenes)
	assert.EqualValues(t, 10, counts.Total())

	rb, err := h.migrator.RollbackRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.True(t, rb.Success)

	// 回滚后按快照标记统计必须归零
	counts, err = h.migrator.CountRunRows(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Zero(t, counts.Total())
}

func TestListRunChaptersOrderedByGlobalNumber(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Book One")
	h.seedChapter(book.ID, 1, "One", 10)
	h.seedChapter(book.ID, 2, "Two", 10)
	h.seedChapter(book.ID, 3, "Three", 10)

	result := h.migrate(Options{BatchSize: 10, RollbackOnError: true})
	require.True(t, result.Success)

	chapters, err := h.migrator.ListRunChapters(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.GlobalChapterNumber)
		assert.Equal(t, result.RunID, ch.MigrationRunID)
	}
	assert.Equal(t, "One", chapters[0].Title)
	assert.Equal(t, "Three", chapters[2].Title)

	_, err = h.migrator.ListRunChapters(context.Background(), "missing-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInspectBookHierarchy(t *testing.T) {
	h := newHarness(t)
	author := h.seedAuthor("writer")
	book := h.seedBook(author.ID, "Book One")
	h.seedChapter(book.ID, 1, "One", 100)
	h.seedChapter(book.ID, 2, "Two", 50)

	// 未迁移的书返回空视图
	view, err := h.migrator.InspectBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Nil(t, view)

	result := h.migrate(Options{BatchSize: 10, RollbackOnError: true})
	require.True(t, result.Success)

	view, err = h.migrator.InspectBook(context.Background(), book.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, book.ID, view.BookID)
	assert.Equal(t, entity.DefaultStoryTitle, view.Story.Title)
	assert.Equal(t, 150, view.Story.WordCount)

	require.Len(t, view.Parts, 1)
	part := view.Parts[0]
	assert.Equal(t, entity.DefaultPartTitle, part.Part.Title)
	assert.Equal(t, 150, part.Part.WordCount)

	require.Len(t, part.Chapters, 2)
	first := part.Chapters[0]
	assert.Equal(t, 1, first.Chapter.GlobalChapterNumber)
	assert.Equal(t, "One", first.Chapter.Title)
	require.Len(t, first.Scenes, 1)
	assert.Equal(t, 100, first.Scenes[0].WordCount)
	assert.Equal(t, 50, part.Chapters[1].Chapter.WordCount)
}

func TestTuneBatchSize(t *testing.T) {
	h := newHarness(t)

	// 未配置目标耗时时返回夹取后的默认值
	assert.Equal(t, DefaultBatchSize, h.migrator.TuneBatchSize(context.Background(), DefaultBatchSize, 0))
	assert.Equal(t, MinBatchSize, h.migrator.TuneBatchSize(context.Background(), 0, time.Second))

	author := h.seedAuthor("writer")
	for i := 1; i <= 3; i++ {
		book := h.seedBook(author.ID, fmt.Sprintf("Book %d", i))
		h.seedChapter(book.ID, 1, "Chapter", 20)
	}

	size := h.migrator.TuneBatchSize(context.Background(), DefaultBatchSize, 200*time.Millisecond)
	assert.GreaterOrEqual(t, size, MinBatchSize)
	assert.LessOrEqual(t, size, MaxBatchSize)
}
