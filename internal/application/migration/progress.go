package migration

import (
	"fmt"
	"sync"
	"time"
)

// ProgressUpdate 一次进度变更
// RunID 在运行记录建立前为空（例如迁移前校验阶段）。
type ProgressUpdate struct {
	RunID          string  `json:"run_id,omitempty"`
	Stage          string  `json:"stage"`
	TotalItems     int     `json:"total_items"`
	CompletedItems int     `json:"completed_items"`
	Percentage     float64 `json:"percentage"`
}

// ProgressRecord 跨进程共享的进度记录
// 由执行迁移的 worker 写入缓存，API 侧按运行 ID 读取。
type ProgressRecord struct {
	RunID          string    `json:"run_id"`
	Stage          string    `json:"stage"`
	TotalItems     int       `json:"total_items"`
	CompletedItems int       `json:"completed_items"`
	Percentage     float64   `json:"percentage"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProgressSnapshot 进度快照
type ProgressSnapshot struct {
	IsRunning              bool          `json:"is_running"`
	CurrentStage           string        `json:"current_stage"`
	TotalItems             int           `json:"total_items"`
	CompletedItems         int           `json:"completed_items"`
	Percentage             float64       `json:"percentage"`
	EstimatedTimeRemaining time.Duration `json:"estimated_time_remaining"`
}

// ProgressTracker 迁移进度记录器
// 纯数据持有者，由编排器在每次状态变更后调用，自身不做任何 I/O，
// 订阅通知由编排器维护。
type ProgressTracker struct {
	mu sync.RWMutex

	running        bool
	completed      bool
	failed         bool
	stage          string
	totalItems     int
	completedItems int
	percentage     float64
	startedAt      time.Time
	finishedAt     time.Time
}

// NewProgressTracker 创建进度记录器
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// StartTracking 开始跟踪，重置计数并进入 initializing 阶段
func (t *ProgressTracker) StartTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = true
	t.completed = false
	t.failed = false
	t.stage = "initializing"
	t.totalItems = 0
	t.completedItems = 0
	t.percentage = 0
	t.startedAt = time.Now()
	t.finishedAt = time.Time{}
}

// UpdateProgress 覆盖当前进度字段
func (t *ProgressTracker) UpdateProgress(update ProgressUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	if update.Stage != "" {
		t.stage = update.Stage
	}
	t.totalItems = update.TotalItems
	t.completedItems = update.CompletedItems
	t.percentage = update.Percentage
}

// Complete 结束跟踪，百分比强制为 100
func (t *ProgressTracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	t.completed = true
	t.percentage = 100
	t.finishedAt = time.Now()
}

// Fail 以失败收尾，保留失败时刻的阶段与百分比
// 已经 Complete 过的跟踪不受影响。
func (t *ProgressTracker) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	t.failed = true
	t.finishedAt = time.Now()
}

// GetProgress 获取进度快照
func (t *ProgressTracker) GetProgress() ProgressSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return ProgressSnapshot{
		IsRunning:              t.running,
		CurrentStage:           t.stage,
		TotalItems:             t.totalItems,
		CompletedItems:         t.completedItems,
		Percentage:             t.percentage,
		EstimatedTimeRemaining: t.estimateRemaining(),
	}
}

// estimateRemaining 按已耗时等比外推剩余时间，调用方需持有读锁
func (t *ProgressTracker) estimateRemaining() time.Duration {
	if !t.running || t.percentage <= 0 {
		return 0
	}
	elapsed := time.Since(t.startedAt)
	remaining := time.Duration(float64(elapsed) * (100 - t.percentage) / t.percentage)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetProgressSummary 获取进度的简短描述
func (t *ProgressTracker) GetProgressSummary() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.completed {
		return fmt.Sprintf("Migration completed in %s", t.finishedAt.Sub(t.startedAt).Round(time.Millisecond))
	}
	if t.failed {
		return fmt.Sprintf("Migration failed at %s: %.1f%%", t.stage, t.percentage)
	}
	if !t.running {
		return "Migration not started"
	}
	return fmt.Sprintf("%s: %.1f%%", t.stage, t.percentage)
}
