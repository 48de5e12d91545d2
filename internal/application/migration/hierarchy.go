package migration

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/domain/repository"
	apperrors "z-novel-migration/pkg/errors"
	"z-novel-migration/pkg/logger"
	"z-novel-migration/pkg/metrics"
)

// Options 迁移运行选项
// 零值关闭所有开关，调用方应以 DefaultOptions 为基底覆盖字段。
type Options struct {
	// BatchSize 每批处理的书籍数量，小于 1 时取 DefaultBatchSize
	BatchSize int
	// DryRun 只计算将创建的内容，不落任何行
	DryRun bool
	// ValidateBeforeMigration 迁移前先做源数据校验，校验失败直接中止
	ValidateBeforeMigration bool
	// RollbackOnError 写入阶段失败后自动回滚本次已创建的行
	RollbackOnError bool
	// BookIDs 只迁移指定书籍，为空时迁移全部未迁移书籍
	BookIDs []string
}

// DefaultOptions 返回默认运行选项
func DefaultOptions() Options {
	return Options{
		BatchSize:               DefaultBatchSize,
		ValidateBeforeMigration: true,
		RollbackOnError:         true,
	}
}

// MigrationResult 迁移运行结果
// 预期内的失败（校验不通过、写入阶段出错）通过 Success 与 Errors
// 表达，Go error 只用于存储不可用等无法推理局部状态的场景。
type MigrationResult struct {
	Success             bool          `json:"success"`
	RunID               string        `json:"run_id,omitempty"`
	DryRun              bool          `json:"dry_run"`
	MigratedBooks       int           `json:"migrated_books"`
	MigratedChapters    int           `json:"migrated_chapters"`
	CreatedStories      int           `json:"created_stories"`
	CreatedParts        int           `json:"created_parts"`
	CreatedScenes       int           `json:"created_scenes"`
	SkippedBooks        int           `json:"skipped_books"`
	Errors              []string      `json:"errors"`
	ProcessedInBatches  int           `json:"processed_in_batches"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
}

// RollbackResult 回滚结果
type RollbackResult struct {
	Success       bool     `json:"success"`
	RunID         string   `json:"run_id,omitempty"`
	RollbackSteps []string `json:"rollback_steps"`
	DataRestored  bool     `json:"data_restored"`
	Errors        []string `json:"errors"`
}

// HierarchyMigration 层级迁移编排器
// 驱动完整的迁移生命周期：校验、打快照标记、分批转换、进度上报、
// 回滚。批次严格串行，全局章节号跨批次单调递增。
type HierarchyMigration struct {
	books    repository.BookRepository
	chapters repository.ChapterRepository
	stories  repository.StoryRepository
	parts    repository.PartRepository
	enhanced repository.EnhancedChapterRepository
	scenes   repository.SceneRepository
	runs     repository.MigrationRunRepository
	tx       repository.Transactor

	validator *Validator
	tracker   *ProgressTracker

	mu        sync.Mutex
	callbacks []func(ProgressUpdate)
}

// NewHierarchyMigration 创建层级迁移编排器
func NewHierarchyMigration(
	books repository.BookRepository,
	chapters repository.ChapterRepository,
	stories repository.StoryRepository,
	parts repository.PartRepository,
	enhanced repository.EnhancedChapterRepository,
	scenes repository.SceneRepository,
	runs repository.MigrationRunRepository,
	tx repository.Transactor,
	validator *Validator,
) *HierarchyMigration {
	return &HierarchyMigration{
		books:     books,
		chapters:  chapters,
		stories:   stories,
		parts:     parts,
		enhanced:  enhanced,
		scenes:    scenes,
		runs:      runs,
		tx:        tx,
		validator: validator,
		tracker:   NewProgressTracker(),
	}
}

// OnProgressUpdate 注册进度订阅回调，每次进度变更后同步调用
func (m *HierarchyMigration) OnProgressUpdate(callback func(ProgressUpdate)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// GetMigrationProgress 获取当前进度快照
func (m *HierarchyMigration) GetMigrationProgress() ProgressSnapshot {
	return m.tracker.GetProgress()
}

// publishProgress 更新进度并同步通知全部订阅者
func (m *HierarchyMigration) publishProgress(update ProgressUpdate) {
	m.tracker.UpdateProgress(update)
	metrics.MigrationProgress.Set(update.Percentage)

	m.mu.Lock()
	callbacks := make([]func(ProgressUpdate), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(update)
	}
}

// MigrateToHierarchy 执行旧模型到层级模型的迁移
// 已存在层级数据的书籍视为已迁移并跳过，计入 SkippedBooks；恢复
// 途径是先回滚再重跑。存在活跃运行时拒绝启动（空跑除外）。
func (m *HierarchyMigration) MigrateToHierarchy(ctx context.Context, opts Options) (*MigrationResult, error) {
	ctx, span := tracer.Start(ctx, "migration.HierarchyMigration.MigrateToHierarchy")
	defer span.End()

	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}

	start := time.Now()
	result := &MigrationResult{DryRun: opts.DryRun, Errors: []string{}}
	log := logger.FromContext(ctx)

	m.tracker.StartTracking()
	// 无论从哪条路径退出，进度都要收敛到终态；成功路径已先行
	// Complete，此时 Fail 是空操作。
	defer m.tracker.Fail()

	if opts.ValidateBeforeMigration {
		m.publishProgress(ProgressUpdate{Stage: "validation"})
		vr, err := m.validator.ValidateBeforeMigration(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !vr.IsValid {
			result.Errors = append(result.Errors, vr.Errors...)
			m.finishRun(result, opts, start)
			log.Warn("migration aborted by pre-validation", "errors", len(vr.Errors))
			return result, nil
		}
	}

	if !opts.DryRun {
		active, err := m.runs.GetActive(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if active != nil {
			return nil, apperrors.ErrRunActive.WithDetail(fmt.Sprintf("run %s is %s", active.ID, active.Status))
		}
	}

	books, skipped, err := m.loadBooks(ctx, opts, result)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if books == nil {
		// 显式指定的书籍不存在，loadBooks 已写入错误信息
		m.finishRun(result, opts, start)
		return result, nil
	}
	result.SkippedBooks = skipped

	chaptersByBook, err := m.loadChapters(ctx, books)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	run := entity.NewMigrationRun(opts.BatchSize, opts.DryRun)
	run.Start(len(books))
	run.SkippedBooks = skipped
	result.RunID = run.ID
	if !opts.DryRun {
		if err := m.runs.Create(ctx, run); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	ctx = logger.WithContext(ctx, logger.RunIDKey, run.ID)
	log = logger.FromContext(ctx)
	log.Info("migration run started",
		"total_books", len(books),
		"skipped_books", skipped,
		"batch_size", opts.BatchSize,
		"dry_run", opts.DryRun,
	)

	m.publishProgress(ProgressUpdate{
		RunID:      run.ID,
		Stage:      "migration",
		TotalItems: len(books),
	})

	completedBooks := 0
	nextNumber := 1
	summary, batchErr := ProcessInBatches(ctx, books, opts.BatchSize, func(ctx context.Context, batch []*entity.Book) error {
		next, counts, err := m.migrateBatch(ctx, batch, chaptersByBook, nextNumber, run, opts)
		if err != nil {
			return err
		}
		nextNumber = next

		result.MigratedBooks += counts.books
		result.MigratedChapters += counts.chapters
		result.CreatedStories += counts.stories
		result.CreatedParts += counts.parts
		result.CreatedScenes += counts.scenes

		run.ApplyCounts(counts.books, counts.chapters, counts.stories, counts.parts, counts.scenes)
		if !opts.DryRun {
			if err := m.runs.Update(ctx, run); err != nil {
				return fmt.Errorf("failed to persist run progress: %w", err)
			}
		}

		completedBooks += len(batch)
		m.publishProgress(ProgressUpdate{
			RunID:          run.ID,
			Stage:          "migration",
			TotalItems:     len(books),
			CompletedItems: completedBooks,
			Percentage:     percentage(completedBooks, len(books)),
		})
		return nil
	})

	result.ProcessedInBatches = summary.CompletedBatches

	if batchErr != nil {
		result.Errors = append(result.Errors, batchErr.Error())
		log.Error("migration write phase failed", "error", batchErr,
			"completed_batches", summary.CompletedBatches,
		)

		if !opts.DryRun {
			run.Fail(batchErr.Error())
			if opts.RollbackOnError {
				m.publishProgress(ProgressUpdate{
					RunID:          run.ID,
					Stage:          "rollback",
					TotalItems:     len(books),
					CompletedItems: completedBooks,
					Percentage:     percentage(completedBooks, len(books)),
				})
				rb := m.rollbackRun(ctx, run)
				result.Errors = append(result.Errors, rb.Errors...)
			} else {
				// 显式放弃自动回滚，带标记的部分行留待人工处理
				if err := m.runs.Update(ctx, run); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("failed to persist failed run: %v", err))
				}
			}
		}

		m.finishRun(result, opts, start)
		return result, nil
	}

	run.Complete()
	if !opts.DryRun {
		if err := m.runs.Update(ctx, run); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	result.Success = true
	m.publishProgress(ProgressUpdate{
		RunID:          run.ID,
		Stage:          "migration",
		TotalItems:     len(books),
		CompletedItems: completedBooks,
		Percentage:     100,
	})
	m.tracker.Complete()
	m.finishRun(result, opts, start)

	log.Info("migration run finished",
		"migrated_books", result.MigratedBooks,
		"migrated_chapters", result.MigratedChapters,
		"created_scenes", result.CreatedScenes,
		"batches", result.ProcessedInBatches,
		"duration", result.TotalProcessingTime,
	)
	return result, nil
}

// finishRun 收尾统计与指标上报
func (m *HierarchyMigration) finishRun(result *MigrationResult, opts Options, start time.Time) {
	result.TotalProcessingTime = time.Since(start)

	status := "failed"
	if result.Success {
		status = "completed"
	}
	metrics.MigrationRunsTotal.WithLabelValues(status, strconv.FormatBool(opts.DryRun)).Inc()
	metrics.MigrationRunDuration.WithLabelValues(status).Observe(result.TotalProcessingTime.Seconds())
	metrics.MigrationBooksTotal.WithLabelValues("migrated").Add(float64(result.MigratedBooks))
	metrics.MigrationBooksTotal.WithLabelValues("skipped").Add(float64(result.SkippedBooks))
	metrics.MigrationChaptersMigrated.Add(float64(result.MigratedChapters))
	metrics.MigrationScenesCreated.Add(float64(result.CreatedScenes))
}

// loadBooks 加载待迁移书籍
// 返回 nil 列表表示显式指定的书籍无法全部解析，错误已写入 result。
func (m *HierarchyMigration) loadBooks(ctx context.Context, opts Options, result *MigrationResult) ([]*entity.Book, int, error) {
	if len(opts.BookIDs) > 0 {
		// 去重后再比对数量，重复指定同一本书不算缺失
		seen := make(map[string]bool, len(opts.BookIDs))
		ids := make([]string, 0, len(opts.BookIDs))
		for _, id := range opts.BookIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}

		requested, err := m.books.ListByIDs(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		if len(requested) < len(ids) {
			found := make(map[string]bool, len(requested))
			for _, b := range requested {
				found[b.ID] = true
			}
			for _, id := range ids {
				if !found[id] {
					result.Errors = append(result.Errors, fmt.Sprintf("book %s not found", id))
				}
			}
			return nil, 0, nil
		}

		migratedIDs, err := m.stories.ListBookIDsWithStories(ctx)
		if err != nil {
			return nil, 0, err
		}
		migrated := make(map[string]bool, len(migratedIDs))
		for _, id := range migratedIDs {
			migrated[id] = true
		}

		books := make([]*entity.Book, 0, len(requested))
		skipped := 0
		for _, b := range requested {
			if migrated[b.ID] {
				skipped++
				continue
			}
			books = append(books, b)
		}
		return books, skipped, nil
	}

	total, err := m.books.CountAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	books, err := m.books.ListUnmigrated(ctx)
	if err != nil {
		return nil, 0, err
	}
	return books, int(total) - len(books), nil
}

// loadChapters 按书分组加载全部章节，组内保持章节序号升序
func (m *HierarchyMigration) loadChapters(ctx context.Context, books []*entity.Book) (map[string][]*entity.Chapter, error) {
	if len(books) == 0 {
		return map[string][]*entity.Chapter{}, nil
	}

	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}

	chapters, err := m.chapters.ListByBookIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byBook := make(map[string][]*entity.Chapter, len(books))
	for _, ch := range chapters {
		byBook[ch.BookID] = append(byBook[ch.BookID], ch)
	}
	return byBook, nil
}

// batchCounts 单批次的创建统计
type batchCounts struct {
	books    int
	chapters int
	stories  int
	parts    int
	scenes   int
}

// migrateBatch 迁移一个批次的书籍
// startNumber 是本批第一个章节的全局序号，返回下一批应使用的起始
// 序号，计数依赖显式传递而非共享可变状态。写入在单个事务内完成，
// 聚合字数在创建后自底向上回填。
func (m *HierarchyMigration) migrateBatch(
	ctx context.Context,
	batch []*entity.Book,
	chaptersByBook map[string][]*entity.Chapter,
	startNumber int,
	run *entity.MigrationRun,
	opts Options,
) (int, batchCounts, error) {
	ctx, span := tracer.Start(ctx, "migration.HierarchyMigration.migrateBatch")
	defer span.End()

	plans := make([]*bookPlan, 0, len(batch))
	next := startNumber
	counts := batchCounts{}

	for _, book := range batch {
		plan, err := planBook(book, chaptersByBook[book.ID], next, run.ID)
		if err != nil {
			span.RecordError(err)
			return startNumber, batchCounts{}, err
		}
		plans = append(plans, plan)
		next = plan.nextNumber

		counts.books++
		counts.chapters += len(plan.chapters)
		counts.stories++
		counts.parts++
		counts.scenes += len(plan.scenes)
	}

	if opts.DryRun {
		return next, counts, nil
	}

	err := m.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		stories := make([]*entity.Story, 0, len(plans))
		parts := make([]*entity.Part, 0, len(plans))
		var chapters []*entity.EnhancedChapter
		var scenes []*entity.Scene
		for _, plan := range plans {
			stories = append(stories, plan.story)
			parts = append(parts, plan.part)
			chapters = append(chapters, plan.chapters...)
			scenes = append(scenes, plan.scenes...)
		}

		if err := m.stories.CreateBatch(txCtx, stories); err != nil {
			return err
		}
		if err := m.parts.CreateBatch(txCtx, parts); err != nil {
			return err
		}
		if err := m.enhanced.CreateBatch(txCtx, chapters); err != nil {
			return err
		}
		if err := m.scenes.CreateBatch(txCtx, scenes); err != nil {
			return err
		}

		return m.applyRollups(txCtx, plans)
	})
	if err != nil {
		span.RecordError(err)
		return startNumber, batchCounts{}, err
	}

	return next, counts, nil
}

// applyRollups 自底向上回填本批次的聚合字数
func (m *HierarchyMigration) applyRollups(ctx context.Context, plans []*bookPlan) error {
	for _, plan := range plans {
		for i, ch := range plan.chapters {
			if err := m.enhanced.UpdateWordCount(ctx, ch.ID, plan.scenes[i].WordCount); err != nil {
				return err
			}
		}
		if err := m.parts.UpdateWordCount(ctx, plan.part.ID, plan.wordTotal); err != nil {
			return err
		}
		if err := m.stories.UpdateWordCount(ctx, plan.story.ID, plan.wordTotal); err != nil {
			return err
		}
	}
	return nil
}

// bookPlan 单本书的迁移计划
type bookPlan struct {
	story      *entity.Story
	part       *entity.Part
	chapters   []*entity.EnhancedChapter
	scenes     []*entity.Scene
	wordTotal  int
	nextNumber int
}

// planBook 计算一本书将创建的层级行，纯函数，空跑与真实写入共用
// 每本书固定创建一个故事与一个分部，每个旧章节对应一个层级章节
// 与一个场景。场景字数按抽取出的正文重新计数，不沿用旧缓存值。
// 零章节的书仍产出故事与分部，空书架也是合法的迁移结果。
func planBook(book *entity.Book, chapters []*entity.Chapter, startNumber int, runID string) (*bookPlan, error) {
	story := entity.NewStory(book.ID, runID, entity.DefaultStoryTitle, 0)
	part := entity.NewPart(story.ID, runID, entity.DefaultPartTitle, 1)

	plan := &bookPlan{
		story:      story,
		part:       part,
		nextNumber: startNumber,
	}

	for _, ch := range chapters {
		text, err := ExtractPlainText(ch.Content)
		if err != nil {
			return nil, fmt.Errorf("book %s chapter %d: %w", book.ID, ch.ChapterNumber, err)
		}
		wordCount := CountWords(text)

		target := entity.NewEnhancedChapter(part.ID, ch.ID, runID, ch.Title, plan.nextNumber)
		scene := entity.NewScene(target.ID, ch.ID, runID, 0, text, wordCount)

		plan.chapters = append(plan.chapters, target)
		plan.scenes = append(plan.scenes, scene)
		plan.nextNumber++
		plan.wordTotal += wordCount
	}

	return plan, nil
}

// ValidateMigration 迁移后校验，等价于 Validator.ValidateAfterMigration
func (m *HierarchyMigration) ValidateMigration(ctx context.Context) (*ValidationResult, error) {
	return m.validator.ValidateAfterMigration(ctx)
}

// HasRollbackSnapshot 是否存在可回滚的快照标记
// 以运行台账回答，进程重启后依然有效。
func (m *HierarchyMigration) HasRollbackSnapshot(ctx context.Context) (bool, error) {
	run, err := m.runs.GetLatestRollbackable(ctx)
	if err != nil {
		return false, err
	}
	return run != nil, nil
}

// RollbackMigration 回滚最近一次留有快照标记的运行
func (m *HierarchyMigration) RollbackMigration(ctx context.Context) (*RollbackResult, error) {
	ctx, span := tracer.Start(ctx, "migration.HierarchyMigration.RollbackMigration")
	defer span.End()

	run, err := m.runs.GetLatestRollbackable(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if run == nil {
		return &RollbackResult{
			Success: false,
			Errors:  []string{"no rollback snapshot available"},
		}, nil
	}
	return m.rollbackRun(ctx, run), nil
}

// RollbackRun 回滚指定运行
func (m *HierarchyMigration) RollbackRun(ctx context.Context, runID string) (*RollbackResult, error) {
	ctx, span := tracer.Start(ctx, "migration.HierarchyMigration.RollbackRun")
	defer span.End()

	run, err := m.runs.GetByID(ctx, runID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if run == nil {
		return &RollbackResult{
			RunID:   runID,
			Success: false,
			Errors:  []string{fmt.Sprintf("migration run %s not found", runID)},
		}, nil
	}
	if !run.Rollbackable() {
		return &RollbackResult{
			RunID:   runID,
			Success: false,
			Errors:  []string{fmt.Sprintf("migration run %s has no rollback snapshot (status %s)", runID, run.Status)},
		}, nil
	}
	return m.rollbackRun(ctx, run), nil
}

// rollbackRun 按快照标记做叶到根的过滤删除
// 各阶段独立执行并独立报告删除行数，已被外部清掉的行不算失败，
// 只有删除本身出错才计入 Errors。不重试，残留交由人工处理。
func (m *HierarchyMigration) rollbackRun(ctx context.Context, run *entity.MigrationRun) *RollbackResult {
	ctx, span := tracer.Start(ctx, "migration.HierarchyMigration.rollbackRun")
	defer span.End()
	log := logger.FromContext(ctx)

	result := &RollbackResult{
		RunID:         run.ID,
		RollbackSteps: []string{},
		Errors:        []string{},
	}

	phases := []struct {
		name   string
		delete func(context.Context, string) (int64, error)
	}{
		{"scenes", m.scenes.DeleteByRunID},
		{"chapters", m.enhanced.DeleteByRunID},
		{"parts", m.parts.DeleteByRunID},
		{"stories", m.stories.DeleteByRunID},
	}

	for _, phase := range phases {
		deleted, err := phase.delete(ctx, run.ID)
		if err != nil {
			span.RecordError(err)
			result.Errors = append(result.Errors,
				fmt.Sprintf("failed to delete %s created by run %s: %v", phase.name, run.ID, err))
			continue
		}
		result.RollbackSteps = append(result.RollbackSteps,
			fmt.Sprintf("%s: deleted %d rows", phase.name, deleted))
		metrics.RollbackRowsDeleted.WithLabelValues(phase.name).Add(float64(deleted))
	}

	// 删除完成后复核残留，快照标记仍命中任何行都视为回滚失败
	if len(result.Errors) == 0 {
		counts, err := m.CountRunRows(ctx, run.ID)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("failed to verify rollback residue for run %s: %v", run.ID, err))
		} else if counts.Total() > 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("rollback left %d rows tagged with run %s", counts.Total(), run.ID))
		}
	}

	result.Success = len(result.Errors) == 0
	result.DataRestored = result.Success

	if result.Success {
		run.MarkRolledBack()
	} else {
		run.MarkRollbackFailed(fmt.Sprintf("%d rollback phases failed", len(result.Errors)))
	}
	if err := m.runs.Update(ctx, run); err != nil {
		span.RecordError(err)
		result.Errors = append(result.Errors, fmt.Sprintf("failed to persist rollback state: %v", err))
		result.Success = false
	}

	status := "ok"
	if !result.Success {
		status = "failed"
	}
	metrics.RollbackTotal.WithLabelValues(status).Inc()

	log.Info("rollback finished",
		"run_id", run.ID,
		"success", result.Success,
		"steps", len(result.RollbackSteps),
		"errors", len(result.Errors),
	)
	return result
}
