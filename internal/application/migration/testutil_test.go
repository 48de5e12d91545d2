package migration

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/infrastructure/persistence/postgres"
)

// harness 迁移测试环境
// 用临时 SQLite 库跑全部 PostgreSQL 仓储实现，迁移、校验与回滚
// 走与生产一致的代码路径。
type harness struct {
	t  *testing.T
	db *gorm.DB

	books    *postgres.BookRepository
	chapters *postgres.ChapterRepository
	stories  *postgres.StoryRepository
	parts    *postgres.PartRepository
	enhanced *postgres.EnhancedChapterRepository
	scenes   *postgres.SceneRepository
	runs     *postgres.MigrationRunRepository

	migrator  *HierarchyMigration
	validator *Validator

	seedClock time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "migration.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	require.NoError(t, db.AutoMigrate(
		&entity.Author{},
		&entity.Book{},
		&entity.Chapter{},
		&entity.Story{},
		&entity.Part{},
		&entity.EnhancedChapter{},
		&entity.Scene{},
		&entity.MigrationRun{},
	), "failed to migrate test schema")

	client := postgres.NewClientFromDB(db)
	h := &harness{
		t:         t,
		db:        db,
		books:     postgres.NewBookRepository(client),
		chapters:  postgres.NewChapterRepository(client),
		stories:   postgres.NewStoryRepository(client),
		parts:     postgres.NewPartRepository(client),
		enhanced:  postgres.NewEnhancedChapterRepository(client),
		scenes:    postgres.NewSceneRepository(client),
		runs:      postgres.NewMigrationRunRepository(client),
		seedClock: time.Now().Add(-24 * time.Hour),
	}
	h.validator = NewValidator(h.books, h.chapters, h.stories, h.parts, h.enhanced, h.scenes)
	h.migrator = NewHierarchyMigration(
		h.books, h.chapters, h.stories, h.parts, h.enhanced, h.scenes,
		h.runs, postgres.NewTxManager(client), h.validator,
	)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return h
}

// nextTime 单调递增的种子时间，保证按创建时间排序的读取顺序可预测
func (h *harness) nextTime() time.Time {
	h.seedClock = h.seedClock.Add(time.Second)
	return h.seedClock
}

func (h *harness) seedAuthor(penName string) *entity.Author {
	h.t.Helper()
	author := entity.NewAuthor(penName)
	require.NoError(h.t, h.db.Create(author).Error)
	return author
}

func (h *harness) seedBook(authorID, title string) *entity.Book {
	h.t.Helper()
	book := entity.NewBook(authorID, title)
	ts := h.nextTime()
	book.CreatedAt = ts
	book.UpdatedAt = ts
	require.NoError(h.t, h.db.Create(book).Error)
	return book
}

// seedChapter 创建章节，缓存字数与正文重算一致
func (h *harness) seedChapter(bookID string, number int, title string, words int) *entity.Chapter {
	h.t.Helper()
	text := wordsText(words)
	chapter := entity.NewChapter(bookID, number, title)
	chapter.SetContent(blockContent(text), CountWords(text))
	require.NoError(h.t, h.db.Create(chapter).Error)
	return chapter
}

// seedRawChapter 创建章节，载荷与缓存字数由调用方完全控制
func (h *harness) seedRawChapter(bookID string, number int, title, content string, cachedWords int) *entity.Chapter {
	h.t.Helper()
	chapter := entity.NewChapter(bookID, number, title)
	chapter.SetContent(content, cachedWords)
	require.NoError(h.t, h.db.Create(chapter).Error)
	return chapter
}

// migrate 执行一次迁移，基础设施错误直接判失败
func (h *harness) migrate(opts Options) *MigrationResult {
	h.t.Helper()
	result, err := h.migrator.MigrateToHierarchy(context.Background(), opts)
	require.NoError(h.t, err)
	require.NotNil(h.t, result)
	return result
}

func (h *harness) countRows(model interface{}) int64 {
	h.t.Helper()
	var count int64
	require.NoError(h.t, h.db.Model(model).Count(&count).Error)
	return count
}

// hierarchyRowCounts 目标层级四张表的行数
func (h *harness) hierarchyRowCounts() (stories, parts, chapters, scenes int64) {
	h.t.Helper()
	return h.countRows(&entity.Story{}),
		h.countRows(&entity.Part{}),
		h.countRows(&entity.EnhancedChapter{}),
		h.countRows(&entity.Scene{})
}

// blockContent 构造块结构的章节正文载荷
func blockContent(texts ...string) string {
	doc := ContentDocument{Blocks: make([]ContentBlock, 0, len(texts))}
	for _, text := range texts {
		doc.Blocks = append(doc.Blocks, ContentBlock{Type: "paragraph", Text: text})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// wordsText 生成恰好 n 个词的拉丁文本
func wordsText(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSpace(strings.Repeat("word ", n))
}
