package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"z-novel-migration/internal/application/migration"
	"z-novel-migration/internal/config"
	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/infrastructure/persistence/postgres"
	"z-novel-migration/internal/interfaces/http/dto"
)

// handlerEnv 处理器测试环境
// 用临时 SQLite 库驱动真实仓储与迁移编排器。producer 与 cache 为
// nil，只覆盖入队前就返回的路径，依赖 Redis 的路径由 worker 侧验证。
type handlerEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "handler.db")), &gorm.Config{
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
	books := postgres.NewBookRepository(client)
	chapters := postgres.NewChapterRepository(client)
	stories := postgres.NewStoryRepository(client)
	parts := postgres.NewPartRepository(client)
	enhanced := postgres.NewEnhancedChapterRepository(client)
	scenes := postgres.NewSceneRepository(client)
	runs := postgres.NewMigrationRunRepository(client)

	validator := migration.NewValidator(books, chapters, stories, parts, enhanced, scenes)
	migrator := migration.NewHierarchyMigration(
		books, chapters, stories, parts, enhanced, scenes,
		runs, postgres.NewTxManager(client), validator,
	)

	cfg := &config.Config{}
	cfg.Migration.BatchSize = 10
	cfg.Migration.AutoRollback = true
	cfg.Migration.ValidateBeforeRun = true

	h := NewMigrationHandler(migrator, validator, runs, nil, nil, cfg)

	router := gin.New()
	v1 := router.Group("/v1")
	m := v1.Group("/migration")
	m.POST("/runs", h.StartMigration)
	m.GET("/runs", h.ListRuns)
	m.GET("/runs/:rid", h.GetRun)
	m.GET("/progress", h.GetProgress)
	m.POST("/rollback", h.Rollback)
	m.GET("/rollback/snapshot", h.GetRollbackSnapshot)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &handlerEnv{t: t, db: db, router: router}
}

func (e *handlerEnv) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *handlerEnv) seedBookWithChapter(title string) *entity.Book {
	e.t.Helper()
	author := entity.NewAuthor("writer")
	require.NoError(e.t, e.db.Create(author).Error)
	book := entity.NewBook(author.ID, title)
	require.NoError(e.t, e.db.Create(book).Error)
	chapter := entity.NewChapter(book.ID, 1, "Chapter One")
	chapter.SetContent(`{"blocks":[{"type":"paragraph","text":"alpha beta gamma"}]}`, 3)
	require.NoError(e.t, e.db.Create(chapter).Error)
	return book
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) dto.Response[T] {
	t.Helper()
	var resp dto.Response[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestStartMigrationDryRun(t *testing.T) {
	e := newHandlerEnv(t)
	e.seedBookWithChapter("Dry Run Book")

	w := e.request(http.MethodPost, "/v1/migration/runs", gin.H{"dry_run": true})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse[*dto.MigrationResultResponse](t, w)
	require.NotNil(t, resp.Data)
	assert.True(t, resp.Data.Success)
	assert.True(t, resp.Data.DryRun)
	assert.Equal(t, 1, resp.Data.MigratedBooks)
	assert.Equal(t, 1, resp.Data.MigratedChapters)

	// 空跑不留任何痕迹
	var count int64
	require.NoError(t, e.db.Model(&entity.Story{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, e.db.Model(&entity.MigrationRun{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStartMigrationRejectsBadBatchSize(t *testing.T) {
	e := newHandlerEnv(t)

	for _, size := range []int{0, -5, 101} {
		w := e.request(http.MethodPost, "/v1/migration/runs", gin.H{"batch_size": size, "dry_run": true})

		assert.Equal(t, http.StatusBadRequest, w.Code, "batch_size %d", size)
		assert.Contains(t, w.Body.String(), "batch_size must be between")
	}
}

func TestStartMigrationConflictsWithActiveRun(t *testing.T) {
	e := newHandlerEnv(t)
	e.seedBookWithChapter("Queued Book")

	active := entity.NewMigrationRun(10, false)
	active.Start(1)
	require.NoError(t, e.db.Create(active).Error)

	w := e.request(http.MethodPost, "/v1/migration/runs", nil)

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), active.ID)
}

func TestListRuns(t *testing.T) {
	e := newHandlerEnv(t)
	for i := 0; i < 3; i++ {
		run := entity.NewMigrationRun(10, false)
		run.Start(5)
		run.Complete()
		require.NoError(t, e.db.Create(run).Error)
	}

	w := e.request(http.MethodGet, "/v1/migration/runs?page=1&page_size=2", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse[*dto.RunListResponse](t, w)
	require.NotNil(t, resp.Data)
	assert.Len(t, resp.Data.Runs, 2)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
}

func TestGetRun(t *testing.T) {
	e := newHandlerEnv(t)
	run := entity.NewMigrationRun(10, false)
	run.Start(2)
	run.Complete()
	require.NoError(t, e.db.Create(run).Error)

	w := e.request(http.MethodGet, "/v1/migration/runs/"+run.ID, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse[*dto.RunResponse](t, w)
	require.NotNil(t, resp.Data)
	assert.Equal(t, run.ID, resp.Data.ID)
	assert.Equal(t, string(entity.MigrationRunStatusCompleted), resp.Data.Status)
	assert.Equal(t, 2, resp.Data.TotalBooks)
}

func TestGetRunIncludesRowCounts(t *testing.T) {
	e := newHandlerEnv(t)
	run := entity.NewMigrationRun(10, false)
	run.Start(1)
	run.Complete()
	require.NoError(t, e.db.Create(run).Error)

	story := entity.NewStory("book-1", run.ID, entity.DefaultStoryTitle, 0)
	require.NoError(t, e.db.Create(story).Error)
	part := entity.NewPart(story.ID, run.ID, entity.DefaultPartTitle, 1)
	require.NoError(t, e.db.Create(part).Error)
	chapter := entity.NewEnhancedChapter(part.ID, "chapter-1", run.ID, "One", 1)
	require.NoError(t, e.db.Create(chapter).Error)
	scene := entity.NewScene(chapter.ID, "chapter-1", run.ID, 0, "alpha beta", 2)
	require.NoError(t, e.db.Create(scene).Error)

	w := e.request(http.MethodGet, "/v1/migration/runs/"+run.ID, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse[*dto.RunResponse](t, w)
	require.NotNil(t, resp.Data)
	require.NotNil(t, resp.Data.RowCounts)
	assert.EqualValues(t, 1, resp.Data.RowCounts.Stories)
	assert.EqualValues(t, 1, resp.Data.RowCounts.Parts)
	assert.EqualValues(t, 1, resp.Data.RowCounts.Chapters)
	assert.EqualValues(t, 1, resp.Data.RowCounts.Scenes)
}

func TestGetRunNotFound(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.request(http.MethodGet, "/v1/migration/runs/missing-run", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "migration run not found")
}

func TestGetProgressWithoutActiveRun(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.request(http.MethodGet, "/v1/migration/progress", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse[*dto.ProgressResponse](t, w)
	require.NotNil(t, resp.Data)
	assert.False(t, resp.Data.IsRunning)
}

func TestGetRollbackSnapshot(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.request(http.MethodGet, "/v1/migration/rollback/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse[*dto.RollbackSnapshotResponse](t, w)
	require.NotNil(t, resp.Data)
	assert.False(t, resp.Data.Available)

	run := entity.NewMigrationRun(10, false)
	run.Start(1)
	run.Complete()
	require.NoError(t, e.db.Create(run).Error)

	w = e.request(http.MethodGet, "/v1/migration/rollback/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse[*dto.RollbackSnapshotResponse](t, w)
	require.NotNil(t, resp.Data)
	assert.True(t, resp.Data.Available)
	assert.Equal(t, run.ID, resp.Data.RunID)
}

func TestRollbackWithoutSnapshot(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.request(http.MethodPost, "/v1/migration/rollback", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no rollback snapshot available")
}

func TestRollbackUnknownRun(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.request(http.MethodPost, "/v1/migration/rollback", gin.H{"run_id": "missing-run"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "migration run not found")
}

func TestRollbackRejectsRolledBackRun(t *testing.T) {
	e := newHandlerEnv(t)
	run := entity.NewMigrationRun(10, false)
	run.Start(1)
	run.Complete()
	run.MarkRolledBack()
	require.NoError(t, e.db.Create(run).Error)

	w := e.request(http.MethodPost, "/v1/migration/rollback", gin.H{"run_id": run.ID})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "has no rollback snapshot")
}
