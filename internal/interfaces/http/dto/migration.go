// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"z-novel-migration/internal/application/migration"
	"z-novel-migration/internal/domain/entity"
)

// StartMigrationRequest 发起迁移请求
// 可选字段缺省时沿用服务端配置的默认值。
type StartMigrationRequest struct {
	BatchSize               *int     `json:"batch_size,omitempty"`
	DryRun                  bool     `json:"dry_run"`
	ValidateBeforeMigration *bool    `json:"validate_before_migration,omitempty"`
	RollbackOnError         *bool    `json:"rollback_on_error,omitempty"`
	BookIDs                 []string `json:"book_ids,omitempty"`
}

// ToOptions 在默认选项上应用请求覆盖
func (r *StartMigrationRequest) ToOptions(base migration.Options) migration.Options {
	opts := base
	if r == nil {
		return opts
	}
	if r.BatchSize != nil {
		opts.BatchSize = *r.BatchSize
	}
	opts.DryRun = r.DryRun
	if r.ValidateBeforeMigration != nil {
		opts.ValidateBeforeMigration = *r.ValidateBeforeMigration
	}
	if r.RollbackOnError != nil {
		opts.RollbackOnError = *r.RollbackOnError
	}
	opts.BookIDs = r.BookIDs
	return opts
}

// RollbackMigrationRequest 发起回滚请求
// RunID 为空时回滚最近一次留有快照标记的运行。
type RollbackMigrationRequest struct {
	RunID string `json:"run_id,omitempty"`
}

// CommandAcceptedResponse 异步命令受理响应
type CommandAcceptedResponse struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
}

// MigrationResultResponse 迁移结果响应
type MigrationResultResponse struct {
	Success            bool     `json:"success"`
	RunID              string   `json:"run_id,omitempty"`
	DryRun             bool     `json:"dry_run"`
	MigratedBooks      int      `json:"migrated_books"`
	MigratedChapters   int      `json:"migrated_chapters"`
	CreatedStories     int      `json:"created_stories"`
	CreatedParts       int      `json:"created_parts"`
	CreatedScenes      int      `json:"created_scenes"`
	SkippedBooks       int      `json:"skipped_books"`
	Errors             []string `json:"errors"`
	ProcessedInBatches int      `json:"processed_in_batches"`
	ProcessingTimeMs   int64    `json:"processing_time_ms"`
}

// ToMigrationResultResponse 将迁移结果转换为响应 DTO
func ToMigrationResultResponse(r *migration.MigrationResult) *MigrationResultResponse {
	if r == nil {
		return nil
	}
	return &MigrationResultResponse{
		Success:            r.Success,
		RunID:              r.RunID,
		DryRun:             r.DryRun,
		MigratedBooks:      r.MigratedBooks,
		MigratedChapters:   r.MigratedChapters,
		CreatedStories:     r.CreatedStories,
		CreatedParts:       r.CreatedParts,
		CreatedScenes:      r.CreatedScenes,
		SkippedBooks:       r.SkippedBooks,
		Errors:             r.Errors,
		ProcessedInBatches: r.ProcessedInBatches,
		ProcessingTimeMs:   r.TotalProcessingTime.Milliseconds(),
	}
}

// RollbackResultResponse 回滚结果响应
type RollbackResultResponse struct {
	Success       bool     `json:"success"`
	RunID         string   `json:"run_id,omitempty"`
	RollbackSteps []string `json:"rollback_steps"`
	DataRestored  bool     `json:"data_restored"`
	Errors        []string `json:"errors"`
}

// ToRollbackResultResponse 将回滚结果转换为响应 DTO
func ToRollbackResultResponse(r *migration.RollbackResult) *RollbackResultResponse {
	if r == nil {
		return nil
	}
	return &RollbackResultResponse{
		Success:       r.Success,
		RunID:         r.RunID,
		RollbackSteps: r.RollbackSteps,
		DataRestored:  r.DataRestored,
		Errors:        r.Errors,
	}
}

// RollbackSnapshotResponse 回滚快照可用性响应
type RollbackSnapshotResponse struct {
	Available bool   `json:"available"`
	RunID     string `json:"run_id,omitempty"`
}

// ProgressResponse 迁移进度响应
type ProgressResponse struct {
	RunID          string    `json:"run_id,omitempty"`
	IsRunning      bool      `json:"is_running"`
	Stage          string    `json:"stage,omitempty"`
	TotalItems     int       `json:"total_items"`
	CompletedItems int       `json:"completed_items"`
	Percentage     float64   `json:"percentage"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// ToProgressResponse 将进度记录转换为响应 DTO
func ToProgressResponse(rec *migration.ProgressRecord, isRunning bool) *ProgressResponse {
	if rec == nil {
		return &ProgressResponse{IsRunning: false}
	}
	return &ProgressResponse{
		RunID:          rec.RunID,
		IsRunning:      isRunning,
		Stage:          rec.Stage,
		TotalItems:     rec.TotalItems,
		CompletedItems: rec.CompletedItems,
		Percentage:     rec.Percentage,
		UpdatedAt:      rec.UpdatedAt,
	}
}

// RunRowCountsResponse 某次运行创建且仍然在库的层级行数
type RunRowCountsResponse struct {
	Stories  int64 `json:"stories"`
	Parts    int64 `json:"parts"`
	Chapters int64 `json:"chapters"`
	Scenes   int64 `json:"scenes"`
}

// ToRunRowCountsResponse 将行数统计转换为响应 DTO
func ToRunRowCountsResponse(c *migration.RunRowCounts) *RunRowCountsResponse {
	if c == nil {
		return nil
	}
	return &RunRowCountsResponse{
		Stories:  c.Stories,
		Parts:    c.Parts,
		Chapters: c.Chapters,
		Scenes:   c.Scenes,
	}
}

// RunResponse 迁移运行记录响应
type RunResponse struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	Stage            string    `json:"stage,omitempty"`
	DryRun           bool      `json:"dry_run"`
	BatchSize        int       `json:"batch_size"`
	TotalBooks       int       `json:"total_books"`
	MigratedBooks    int       `json:"migrated_books"`
	MigratedChapters int       `json:"migrated_chapters"`
	CreatedStories   int       `json:"created_stories"`
	CreatedParts     int       `json:"created_parts"`
	CreatedScenes    int       `json:"created_scenes"`
	SkippedBooks     int       `json:"skipped_books"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	// RowCounts 按快照标记实时统计，回滚后归零；列表接口不填
	RowCounts  *RunRowCountsResponse `json:"row_counts,omitempty"`
	DurationMs int64                 `json:"duration_ms"`
	StartedAt  time.Time             `json:"started_at,omitempty"`
	FinishedAt time.Time             `json:"finished_at,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// RunListResponse 迁移运行记录列表响应
type RunListResponse struct {
	Runs []*RunResponse `json:"runs"`
}

// ToRunResponse 将领域实体转换为响应 DTO
func ToRunResponse(run *entity.MigrationRun) *RunResponse {
	if run == nil {
		return nil
	}

	resp := &RunResponse{
		ID:               run.ID,
		Status:           string(run.Status),
		Stage:            run.Stage,
		DryRun:           run.DryRun,
		BatchSize:        run.BatchSize,
		TotalBooks:       run.TotalBooks,
		MigratedBooks:    run.MigratedBooks,
		MigratedChapters: run.MigratedChapters,
		CreatedStories:   run.CreatedStories,
		CreatedParts:     run.CreatedParts,
		CreatedScenes:    run.CreatedScenes,
		SkippedBooks:     run.SkippedBooks,
		ErrorMessage:     run.ErrorMessage,
		DurationMs:       run.Duration().Milliseconds(),
		CreatedAt:        run.CreatedAt,
	}

	if run.StartedAt != nil {
		resp.StartedAt = *run.StartedAt
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = *run.FinishedAt
	}

	return resp
}

// ToRunListResponse 将领域实体列表转换为响应 DTO
func ToRunListResponse(runs []*entity.MigrationRun) *RunListResponse {
	resp := &RunListResponse{
		Runs: make([]*RunResponse, 0, len(runs)),
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, ToRunResponse(run))
	}
	return resp
}

// ValidationResultResponse 校验结果响应
type ValidationResultResponse struct {
	Phase                    string                             `json:"phase"`
	IsValid                  bool                               `json:"is_valid"`
	DataIntegrityChecks      migration.DataIntegrityChecks      `json:"data_integrity_checks"`
	MigrationIntegrityChecks migration.MigrationIntegrityChecks `json:"migration_integrity_checks"`
	Warnings                 []string                           `json:"warnings"`
	Errors                   []string                           `json:"errors"`
}

// ToValidationResultResponse 将校验结果转换为响应 DTO
func ToValidationResultResponse(phase string, r *migration.ValidationResult) *ValidationResultResponse {
	if r == nil {
		return nil
	}
	return &ValidationResultResponse{
		Phase:                    phase,
		IsValid:                  r.IsValid,
		DataIntegrityChecks:      r.DataIntegrityChecks,
		MigrationIntegrityChecks: r.MigrationIntegrityChecks,
		Warnings:                 r.Warnings,
		Errors:                   r.Errors,
	}
}
