// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"z-novel-migration/internal/application/migration"
	"z-novel-migration/internal/config"
	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/domain/repository"
	"z-novel-migration/internal/infrastructure/messaging"
	"z-novel-migration/internal/infrastructure/persistence/redis"
	"z-novel-migration/internal/interfaces/http/dto"
	"z-novel-migration/pkg/errors"
	"z-novel-migration/pkg/logger"
)

// 校验阶段白名单
var validationPhases = map[string]bool{
	"before":    true,
	"after":     true,
	"integrity": true,
}

// MigrationHandler 迁移处理器
// 真实迁移与回滚走命令流异步执行，空跑只读且有界，同步执行并
// 直接返回结果。
type MigrationHandler struct {
	migrator  *migration.HierarchyMigration
	validator *migration.Validator
	runs      repository.MigrationRunRepository
	producer  *messaging.Producer
	cache     *redis.Cache
	cfg       *config.Config
}

// NewMigrationHandler 创建迁移处理器
func NewMigrationHandler(
	migrator *migration.HierarchyMigration,
	validator *migration.Validator,
	runs repository.MigrationRunRepository,
	producer *messaging.Producer,
	cache *redis.Cache,
	cfg *config.Config,
) *MigrationHandler {
	return &MigrationHandler{
		migrator:  migrator,
		validator: validator,
		runs:      runs,
		producer:  producer,
		cache:     cache,
		cfg:       cfg,
	}
}

// StartMigration 发起迁移
// @Summary 发起迁移
// @Description 发起旧模型到层级模型的迁移，空跑同步返回结果，真实迁移异步受理
// @Tags Migration
// @Accept json
// @Produce json
// @Param request body dto.StartMigrationRequest false "迁移选项"
// @Success 200 {object} dto.Response[dto.MigrationResultResponse] "空跑结果"
// @Success 202 {object} dto.Response[dto.CommandAcceptedResponse] "已受理"
// @Failure 409 {object} dto.ErrorResponse "已有运行中的迁移"
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/migration/runs [post]
func (h *MigrationHandler) StartMigration(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StartMigrationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body")
			return
		}
	}

	opts := req.ToOptions(h.defaultOptions())
	if opts.BatchSize < migration.MinBatchSize || opts.BatchSize > migration.MaxBatchSize {
		dto.BadRequest(c, fmt.Sprintf("batch_size must be between %d and %d",
			migration.MinBatchSize, migration.MaxBatchSize))
		return
	}

	if opts.DryRun {
		result, err := h.migrator.MigrateToHierarchy(ctx, opts)
		if err != nil {
			if errors.IsAppError(err) {
				dto.AppError(c, errors.AsAppError(err))
				return
			}
			logger.Error(ctx, "failed to execute dry run", err)
			dto.InternalError(c, "failed to execute dry run")
			return
		}
		dto.Success(c, dto.ToMigrationResultResponse(result))
		return
	}

	active, err := h.runs.GetActive(ctx)
	if err != nil {
		logger.Error(ctx, "failed to check active run", err)
		dto.InternalError(c, "failed to check active run")
		return
	}
	if active != nil {
		dto.Conflict(c, fmt.Sprintf("migration run %s is already %s", active.ID, active.Status))
		return
	}

	cmd := &messaging.RunMigrationCommand{
		CommandID:       uuid.NewString(),
		BatchSize:       opts.BatchSize,
		DryRun:          false,
		SkipValidation:  !opts.ValidateBeforeMigration,
		RollbackOnError: opts.RollbackOnError,
		BookIDs:         opts.BookIDs,
		RequestedBy:     c.GetString("request_id"),
	}
	if _, err := h.producer.PublishRunCommand(ctx, cmd); err != nil {
		logger.Error(ctx, "failed to enqueue migration command", err)
		dto.ServiceUnavailable(c, "failed to enqueue migration command")
		return
	}

	dto.Accepted(c, &dto.CommandAcceptedResponse{
		CommandID: cmd.CommandID,
		Status:    "queued",
	})
}

// defaultOptions 由配置构造默认迁移选项
func (h *MigrationHandler) defaultOptions() migration.Options {
	opts := migration.DefaultOptions()
	if h.cfg == nil {
		return opts
	}
	if h.cfg.Migration.BatchSize > 0 {
		opts.BatchSize = h.cfg.Migration.BatchSize
	}
	opts.ValidateBeforeMigration = h.cfg.Migration.ValidateBeforeRun
	opts.RollbackOnError = h.cfg.Migration.AutoRollback
	return opts
}

// ListRuns 获取迁移运行记录列表
// @Summary 获取迁移运行记录列表
// @Description 分页获取迁移运行台账，按创建时间倒序
// @Tags Migration
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.RunListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/migration/runs [get]
func (h *MigrationHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	result, err := h.runs.List(ctx, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list migration runs", err)
		dto.InternalError(c, "failed to list migration runs")
		return
	}

	resp := dto.ToRunListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// GetRun 获取迁移运行详情
// @Summary 获取迁移运行详情
// @Tags Migration
// @Produce json
// @Param rid path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/migration/runs/{rid} [get]
func (h *MigrationHandler) GetRun(c *gin.Context) {
	ctx := c.Request.Context()
	runID := dto.BindRunID(c)

	run, err := h.runs.GetByID(ctx, runID)
	if err != nil {
		logger.Error(ctx, "failed to get migration run", err)
		dto.InternalError(c, "failed to get migration run")
		return
	}
	if run == nil {
		dto.NotFound(c, "migration run not found")
		return
	}

	resp := dto.ToRunResponse(run)
	if !run.DryRun {
		// 按快照标记统计仍在库的层级行数，统计失败只降级不报错
		counts, err := h.migrator.CountRunRows(ctx, run.ID)
		if err != nil {
			logger.Warn(ctx, "failed to count run rows", "run_id", run.ID, "error", err.Error())
		} else {
			resp.RowCounts = dto.ToRunRowCountsResponse(counts)
		}
	}
	dto.Success(c, resp)
}

// GetProgress 获取迁移进度
// @Summary 获取迁移进度
// @Description 读取 worker 上报的进度缓存，缓存缺失时退化为台账数据
// @Tags Migration
// @Produce json
// @Param run_id query string false "运行 ID，缺省为当前活跃运行"
// @Success 200 {object} dto.Response[dto.ProgressResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/migration/progress [get]
func (h *MigrationHandler) GetProgress(c *gin.Context) {
	ctx := c.Request.Context()

	var run *entity.MigrationRun
	runID := c.Query("run_id")
	if runID == "" {
		active, err := h.runs.GetActive(ctx)
		if err != nil {
			logger.Error(ctx, "failed to check active run", err)
			dto.InternalError(c, "failed to check active run")
			return
		}
		if active == nil {
			dto.Success(c, &dto.ProgressResponse{IsRunning: false})
			return
		}
		run = active
		runID = active.ID
	} else {
		found, err := h.runs.GetByID(ctx, runID)
		if err != nil {
			logger.Error(ctx, "failed to get migration run", err)
			dto.InternalError(c, "failed to get migration run")
			return
		}
		if found == nil {
			dto.NotFound(c, "migration run not found")
			return
		}
		run = found
	}

	isRunning := run.Status == entity.MigrationRunStatusPending ||
		run.Status == entity.MigrationRunStatusRunning

	if data, err := h.cache.Get(ctx, redis.BuildProgressKey(runID)); err == nil {
		var rec migration.ProgressRecord
		if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil {
			dto.Success(c, dto.ToProgressResponse(&rec, isRunning))
			return
		}
	} else if !redis.IsNil(err) {
		logger.Warn(ctx, "failed to read progress cache", "error", err.Error())
	}

	dto.Success(c, &dto.ProgressResponse{
		RunID:          run.ID,
		IsRunning:      isRunning,
		Stage:          run.Stage,
		TotalItems:     run.TotalBooks,
		CompletedItems: run.MigratedBooks,
		Percentage:     runPercentage(run),
		UpdatedAt:      run.UpdatedAt,
	})
}

// runPercentage 由台账计数估算进度百分比
func runPercentage(run *entity.MigrationRun) float64 {
	if run.Status == entity.MigrationRunStatusCompleted {
		return 100
	}
	if run.TotalBooks == 0 {
		return 0
	}
	return float64(run.MigratedBooks) / float64(run.TotalBooks) * 100
}

// GetRollbackSnapshot 查询回滚快照可用性
// @Summary 查询回滚快照可用性
// @Tags Migration
// @Produce json
// @Success 200 {object} dto.Response[dto.RollbackSnapshotResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/migration/rollback/snapshot [get]
func (h *MigrationHandler) GetRollbackSnapshot(c *gin.Context) {
	ctx := c.Request.Context()

	run, err := h.runs.GetLatestRollbackable(ctx)
	if err != nil {
		logger.Error(ctx, "failed to check rollback snapshot", err)
		dto.InternalError(c, "failed to check rollback snapshot")
		return
	}

	resp := &dto.RollbackSnapshotResponse{Available: run != nil}
	if run != nil {
		resp.RunID = run.ID
	}
	dto.Success(c, resp)
}

// Rollback 发起回滚
// @Summary 发起回滚
// @Description 异步回滚指定运行，run_id 缺省为最近一次留有快照标记的运行
// @Tags Migration
// @Accept json
// @Produce json
// @Param request body dto.RollbackMigrationRequest false "回滚目标"
// @Success 202 {object} dto.Response[dto.CommandAcceptedResponse]
// @Failure 404 {object} dto.ErrorResponse "没有可回滚的运行"
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/migration/rollback [post]
func (h *MigrationHandler) Rollback(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RollbackMigrationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body")
			return
		}
	}

	if req.RunID == "" {
		run, err := h.runs.GetLatestRollbackable(ctx)
		if err != nil {
			logger.Error(ctx, "failed to check rollback snapshot", err)
			dto.InternalError(c, "failed to check rollback snapshot")
			return
		}
		if run == nil {
			dto.NotFound(c, "no rollback snapshot available")
			return
		}
		req.RunID = run.ID
	} else {
		run, err := h.runs.GetByID(ctx, req.RunID)
		if err != nil {
			logger.Error(ctx, "failed to get migration run", err)
			dto.InternalError(c, "failed to get migration run")
			return
		}
		if run == nil {
			dto.NotFound(c, "migration run not found")
			return
		}
		if !run.Rollbackable() {
			dto.Conflict(c, fmt.Sprintf("migration run %s has no rollback snapshot (status %s)", run.ID, run.Status))
			return
		}
	}

	cmd := &messaging.RollbackMigrationCommand{
		CommandID:   uuid.NewString(),
		RunID:       req.RunID,
		RequestedBy: c.GetString("request_id"),
	}
	if _, err := h.producer.PublishRollbackCommand(ctx, cmd); err != nil {
		logger.Error(ctx, "failed to enqueue rollback command", err)
		dto.ServiceUnavailable(c, "failed to enqueue rollback command")
		return
	}

	dto.Accepted(c, &dto.CommandAcceptedResponse{
		CommandID: cmd.CommandID,
		Status:    "queued",
	})
}

// Validate 执行校验
// @Summary 执行校验
// @Description 执行指定阶段的校验，结果短暂缓存，refresh=true 时强制重算
// @Tags Migration
// @Produce json
// @Param phase path string true "校验阶段 before/after/integrity"
// @Param refresh query bool false "强制重算"
// @Success 200 {object} dto.Response[dto.ValidationResultResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/migration/validations/{phase} [post]
func (h *MigrationHandler) Validate(c *gin.Context) {
	ctx := c.Request.Context()

	phase := c.Param("phase")
	if !validationPhases[phase] {
		dto.BadRequest(c, "phase must be one of before, after, integrity")
		return
	}

	key := redis.BuildValidationKey(phase)
	if c.Query("refresh") == "true" {
		if err := h.cache.Delete(ctx, key); err != nil {
			logger.Warn(ctx, "failed to invalidate validation cache", "error", err.Error())
		}
	}

	data, err := h.cache.GetOrLoadSafe(ctx, key, h.cfg.Migration.ValidationCacheTTL, func() (interface{}, error) {
		return h.runValidation(c.Request.Context(), phase)
	})
	if err != nil {
		logger.Error(ctx, "validation failed", err, "phase", phase)
		dto.InternalError(c, "validation failed")
		return
	}

	var result migration.ValidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Error(ctx, "failed to decode validation result", err, "phase", phase)
		dto.InternalError(c, "failed to decode validation result")
		return
	}

	dto.Success(c, dto.ToValidationResultResponse(phase, &result))
}

// runValidation 按阶段分发校验
func (h *MigrationHandler) runValidation(ctx context.Context, phase string) (interface{}, error) {
	switch phase {
	case "before":
		return h.validator.ValidateBeforeMigration(ctx)
	case "after":
		return h.validator.ValidateAfterMigration(ctx)
	default:
		return h.validator.CheckDataIntegrity(ctx)
	}
}
