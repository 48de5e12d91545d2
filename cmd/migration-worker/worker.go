package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"z-novel-migration/internal/application/migration"
	"z-novel-migration/internal/config"
	"z-novel-migration/internal/infrastructure/messaging"
	"z-novel-migration/internal/infrastructure/persistence/redis"
	apperrors "z-novel-migration/pkg/errors"
	"z-novel-migration/pkg/logger"
)

// progressTTL 进度缓存的保留时间，运行结束后仍可短期回查
const progressTTL = 24 * time.Hour

// worker 消费迁移命令流并执行迁移、回滚与校验
type worker struct {
	cfg       *config.Config
	migrator  *migration.HierarchyMigration
	validator *migration.Validator
	cache     *redis.Cache
	lock      *redis.RunLock
	producer  *messaging.Producer

	mu        sync.Mutex
	lastRunID string
}

func newWorker(
	cfg *config.Config,
	migrator *migration.HierarchyMigration,
	validator *migration.Validator,
	cache *redis.Cache,
	lock *redis.RunLock,
	producer *messaging.Producer,
) *worker {
	return &worker{
		cfg:       cfg,
		migrator:  migrator,
		validator: validator,
		cache:     cache,
		lock:      lock,
		producer:  producer,
	}
}

// handleProgress 将迁移进度写入缓存并发布生命周期事件
// 校验阶段尚无运行记录（RunID 为空），此时只在进程内可见，不落缓存。
func (w *worker) handleProgress(u migration.ProgressUpdate) {
	if u.RunID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record := migration.ProgressRecord{
		RunID:          u.RunID,
		Stage:          u.Stage,
		TotalItems:     u.TotalItems,
		CompletedItems: u.CompletedItems,
		Percentage:     u.Percentage,
		UpdatedAt:      time.Now(),
	}
	if err := w.cache.Set(ctx, redis.BuildProgressKey(u.RunID), record, progressTTL); err != nil {
		logger.Warn(ctx, "failed to cache migration progress", "run_id", u.RunID, "error", err)
	}

	w.mu.Lock()
	started := w.lastRunID != u.RunID
	w.lastRunID = u.RunID
	w.mu.Unlock()

	event := messaging.EventMigrationProgress
	if started {
		event = messaging.EventMigrationStarted
	}
	w.publishEvent(ctx, &messaging.MigrationEventMessage{
		RunID:          u.RunID,
		Event:          event,
		Stage:          u.Stage,
		Percentage:     u.Percentage,
		ProcessedBooks: u.CompletedItems,
		TotalBooks:     u.TotalItems,
	})
}

// handleRunCommand 执行迁移命令
// 返回错误视为基础设施故障，交由消费者重试；业务性失败确认消息并发布失败事件。
func (w *worker) handleRunCommand(ctx context.Context, msg *messaging.Message) error {
	var cmd messaging.RunMigrationCommand
	if err := msg.UnmarshalPayload(&cmd); err != nil {
		return fmt.Errorf("failed to unmarshal run command: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info("run command received",
		"command_id", cmd.CommandID,
		"dry_run", cmd.DryRun,
		"batch_size", cmd.BatchSize,
	)

	ttl := w.cfg.Migration.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	acquired, err := w.lock.Acquire(ctx, cmd.CommandID, ttl)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		holder, _ := w.lock.Holder(ctx)
		return apperrors.ErrLockNotAcquired.WithDetail(fmt.Sprintf("held by %s", holder))
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go w.refreshLock(ctx, cmd.CommandID, ttl, stop, &wg)
	defer func() {
		close(stop)
		wg.Wait()
		if _, err := w.lock.Release(ctx, cmd.CommandID); err != nil {
			logger.Warn(ctx, "failed to release run lock", "command_id", cmd.CommandID, "error", err)
		}
	}()

	result, err := w.migrator.MigrateToHierarchy(ctx, w.optionsFromCommand(ctx, &cmd))
	if err != nil {
		w.publishEvent(ctx, &messaging.MigrationEventMessage{
			Event:   messaging.EventMigrationFailed,
			Message: err.Error(),
		})
		return err
	}

	if !result.Success {
		reason := "migration failed"
		if len(result.Errors) > 0 {
			reason = result.Errors[0]
		}
		w.publishEvent(ctx, &messaging.MigrationEventMessage{
			RunID:          result.RunID,
			Event:          messaging.EventMigrationFailed,
			ProcessedBooks: result.MigratedBooks,
			TotalBooks:     result.MigratedBooks + result.SkippedBooks,
			Message:        reason,
		})
		log.Warn("migration run failed",
			"command_id", cmd.CommandID,
			"run_id", result.RunID,
			"errors", len(result.Errors),
		)
		return nil
	}

	if !result.DryRun {
		if err := w.cache.InvalidateValidation(ctx); err != nil {
			logger.Warn(ctx, "failed to invalidate validation cache", "error", err)
		}
	}
	w.publishEvent(ctx, &messaging.MigrationEventMessage{
		RunID:          result.RunID,
		Event:          messaging.EventMigrationCompleted,
		Percentage:     100,
		ProcessedBooks: result.MigratedBooks,
		TotalBooks:     result.MigratedBooks + result.SkippedBooks,
		Message: fmt.Sprintf("migrated %d books, %d chapters, %d scenes",
			result.MigratedBooks, result.MigratedChapters, result.CreatedScenes),
	})
	log.Info("migration run completed",
		"command_id", cmd.CommandID,
		"run_id", result.RunID,
		"migrated_books", result.MigratedBooks,
		"duration", result.TotalProcessingTime,
	)
	return nil
}

// handleRollbackCommand 执行回滚命令，RunID 为空时回滚最近一次可回滚的运行
func (w *worker) handleRollbackCommand(ctx context.Context, msg *messaging.Message) error {
	var cmd messaging.RollbackMigrationCommand
	if err := msg.UnmarshalPayload(&cmd); err != nil {
		return fmt.Errorf("failed to unmarshal rollback command: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info("rollback command received", "command_id", cmd.CommandID, "run_id", cmd.RunID)

	var (
		result *migration.RollbackResult
		err    error
	)
	if cmd.RunID == "" {
		result, err = w.migrator.RollbackMigration(ctx)
	} else {
		result, err = w.migrator.RollbackRun(ctx, cmd.RunID)
	}
	if err != nil {
		w.publishEvent(ctx, &messaging.MigrationEventMessage{
			RunID:   cmd.RunID,
			Event:   messaging.EventMigrationFailed,
			Message: fmt.Sprintf("rollback failed: %v", err),
		})
		return err
	}

	if !result.Success {
		reason := "rollback failed"
		if len(result.Errors) > 0 {
			reason = result.Errors[0]
		}
		w.publishEvent(ctx, &messaging.MigrationEventMessage{
			RunID:   result.RunID,
			Event:   messaging.EventMigrationFailed,
			Message: fmt.Sprintf("rollback failed: %s", reason),
		})
		log.Warn("rollback failed", "run_id", result.RunID, "errors", len(result.Errors))
		return nil
	}

	if result.RunID != "" {
		if err := w.cache.InvalidateRun(ctx, result.RunID); err != nil {
			logger.Warn(ctx, "failed to invalidate run cache", "run_id", result.RunID, "error", err)
		}
	}
	if err := w.cache.InvalidateValidation(ctx); err != nil {
		logger.Warn(ctx, "failed to invalidate validation cache", "error", err)
	}
	w.publishEvent(ctx, &messaging.MigrationEventMessage{
		RunID:   result.RunID,
		Event:   messaging.EventMigrationRolledBack,
		Message: strings.Join(result.RollbackSteps, "; "),
	})
	log.Info("rollback completed", "run_id", result.RunID, "steps", len(result.RollbackSteps))
	return nil
}

// handleValidateCommand 执行校验命令并发布校验结果事件
func (w *worker) handleValidateCommand(ctx context.Context, msg *messaging.Message) error {
	var cmd messaging.ValidateMigrationCommand
	if err := msg.UnmarshalPayload(&cmd); err != nil {
		return fmt.Errorf("failed to unmarshal validate command: %w", err)
	}

	phase := cmd.Phase
	if phase == "" {
		phase = "integrity"
	}

	ttl := w.cfg.Migration.ValidationCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	data, err := w.cache.GetOrLoadSafe(ctx, redis.BuildValidationKey(phase), ttl, func() (interface{}, error) {
		return w.runValidation(ctx, phase)
	})
	if err != nil {
		return fmt.Errorf("failed to run %s validation: %w", phase, err)
	}

	var result migration.ValidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to decode validation result: %w", err)
	}

	w.publishEvent(ctx, &messaging.MigrationEventMessage{
		Event: messaging.EventValidationCompleted,
		Stage: phase,
		Message: fmt.Sprintf("valid=%t errors=%d warnings=%d",
			result.IsValid, len(result.Errors), len(result.Warnings)),
	})
	logger.Info(ctx, "validation completed",
		"command_id", cmd.CommandID,
		"phase", phase,
		"valid", result.IsValid,
	)
	return nil
}

func (w *worker) runValidation(ctx context.Context, phase string) (interface{}, error) {
	switch phase {
	case "before":
		return w.validator.ValidateBeforeMigration(ctx)
	case "after":
		return w.validator.ValidateAfterMigration(ctx)
	default:
		return w.validator.CheckDataIntegrity(ctx)
	}
}

// refreshLock 在迁移执行期间按 TTL/3 周期续约运行锁
func (w *worker) refreshLock(ctx context.Context, holder string, ttl time.Duration, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ok, err := w.lock.Refresh(ctx, holder, ttl)
			if err != nil {
				logger.Warn(ctx, "failed to refresh run lock", "holder", holder, "error", err)
				continue
			}
			if !ok {
				logger.Warn(ctx, "run lock lost", "holder", holder)
				return
			}
		}
	}
}

// optionsFromCommand 由命令构造迁移选项
// 命令未指定批大小时先取配置默认值，再按目标批耗时采样调优。
func (w *worker) optionsFromCommand(ctx context.Context, cmd *messaging.RunMigrationCommand) migration.Options {
	opts := migration.Options{
		BatchSize:               cmd.BatchSize,
		DryRun:                  cmd.DryRun,
		ValidateBeforeMigration: !cmd.SkipValidation,
		RollbackOnError:         cmd.RollbackOnError,
		BookIDs:                 cmd.BookIDs,
	}
	if opts.BatchSize <= 0 {
		if w.cfg.Migration.BatchSize > 0 {
			opts.BatchSize = w.cfg.Migration.BatchSize
		} else {
			opts.BatchSize = migration.DefaultBatchSize
		}
		if w.cfg.Migration.TargetBatchDuration > 0 {
			opts.BatchSize = w.migrator.TuneBatchSize(ctx, opts.BatchSize, w.cfg.Migration.TargetBatchDuration)
			logger.Info(ctx, "tuned migration batch size",
				"batch_size", opts.BatchSize,
				"target_batch_duration", w.cfg.Migration.TargetBatchDuration,
			)
		}
	}
	return opts
}

func (w *worker) publishEvent(ctx context.Context, event *messaging.MigrationEventMessage) {
	if _, err := w.producer.PublishEvent(ctx, event); err != nil {
		logger.Warn(ctx, "failed to publish migration event", "event", event.Event, "error", err)
	}
}
