// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// MigrationRunStatus 迁移运行状态
type MigrationRunStatus string

const (
	MigrationRunStatusPending        MigrationRunStatus = "pending"
	MigrationRunStatusRunning        MigrationRunStatus = "running"
	MigrationRunStatusCompleted      MigrationRunStatus = "completed"
	MigrationRunStatusFailed         MigrationRunStatus = "failed"
	MigrationRunStatusRolledBack     MigrationRunStatus = "rolled_back"
	MigrationRunStatusRollbackFailed MigrationRunStatus = "rollback_failed"
)

// MigrationRun 迁移运行记录
// ID 同时充当快照标记：本次运行创建的每一行层级数据都打上该值，
// 回滚按标记做叶到根的过滤删除。进程中断后记录仍在，允许之后
// 单独发起回滚。
type MigrationRun struct {
	ID               string             `json:"id" gorm:"type:uuid;primaryKey"`
	Status           MigrationRunStatus `json:"status" gorm:"type:varchar(50);index;default:'pending'"`
	Stage            string             `json:"stage,omitempty" gorm:"type:varchar(50)"`
	DryRun           bool               `json:"dry_run" gorm:"default:false"`
	BatchSize        int                `json:"batch_size" gorm:"default:0"`
	TotalBooks       int                `json:"total_books" gorm:"default:0"`
	MigratedBooks    int                `json:"migrated_books" gorm:"default:0"`
	MigratedChapters int                `json:"migrated_chapters" gorm:"default:0"`
	CreatedStories   int                `json:"created_stories" gorm:"default:0"`
	CreatedParts     int                `json:"created_parts" gorm:"default:0"`
	CreatedScenes    int                `json:"created_scenes" gorm:"default:0"`
	SkippedBooks     int                `json:"skipped_books" gorm:"default:0"`
	ErrorMessage     string             `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt        *time.Time         `json:"started_at,omitempty"`
	FinishedAt       *time.Time         `json:"finished_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (MigrationRun) TableName() string {
	return "migration_runs"
}

// NewMigrationRun 创建新迁移运行记录
func NewMigrationRun(batchSize int, dryRun bool) *MigrationRun {
	now := time.Now()
	return &MigrationRun{
		ID:        uuid.NewString(),
		Status:    MigrationRunStatusPending,
		Stage:     "initializing",
		DryRun:    dryRun,
		BatchSize: batchSize,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start 开始运行
func (r *MigrationRun) Start(totalBooks int) {
	now := time.Now()
	r.Status = MigrationRunStatusRunning
	r.Stage = "migration"
	r.TotalBooks = totalBooks
	r.StartedAt = &now
}

// Complete 运行完成
func (r *MigrationRun) Complete() {
	now := time.Now()
	r.Status = MigrationRunStatusCompleted
	r.Stage = "completed"
	r.FinishedAt = &now
}

// Fail 运行失败
func (r *MigrationRun) Fail(errMsg string) {
	now := time.Now()
	r.Status = MigrationRunStatusFailed
	r.ErrorMessage = errMsg
	r.FinishedAt = &now
}

// MarkRolledBack 标记已回滚
func (r *MigrationRun) MarkRolledBack() {
	r.Status = MigrationRunStatusRolledBack
	r.Stage = "rolled_back"
}

// MarkRollbackFailed 标记回滚失败，等待人工介入
func (r *MigrationRun) MarkRollbackFailed(errMsg string) {
	r.Status = MigrationRunStatusRollbackFailed
	if errMsg != "" {
		r.ErrorMessage = errMsg
	}
}

// Rollbackable 是否存在可回滚的快照标记
// 空跑不落行，已回滚的运行没有残留行。
func (r *MigrationRun) Rollbackable() bool {
	if r.DryRun {
		return false
	}
	switch r.Status {
	case MigrationRunStatusRunning, MigrationRunStatusCompleted, MigrationRunStatusFailed, MigrationRunStatusRollbackFailed:
		return true
	default:
		return false
	}
}

// Duration 运行耗时
func (r *MigrationRun) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	return end.Sub(*r.StartedAt)
}

// ApplyCounts 累计运行统计
func (r *MigrationRun) ApplyCounts(books, chapters, stories, parts, scenes int) {
	r.MigratedBooks += books
	r.MigratedChapters += chapters
	r.CreatedStories += stories
	r.CreatedParts += parts
	r.CreatedScenes += scenes
}
