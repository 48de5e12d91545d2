// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-migration/internal/domain/entity"
)

// MigrationRunRepository 迁移运行记录仓储接口
type MigrationRunRepository interface {
	// Create 创建运行记录
	Create(ctx context.Context, run *entity.MigrationRun) error

	// Update 更新运行记录
	Update(ctx context.Context, run *entity.MigrationRun) error

	// GetByID 根据 ID 获取运行记录
	GetByID(ctx context.Context, id string) (*entity.MigrationRun, error)

	// GetLatestRollbackable 获取最近一次留有快照标记的运行
	GetLatestRollbackable(ctx context.Context) (*entity.MigrationRun, error)

	// GetActive 获取正在运行的迁移（不存在时返回 nil）
	GetActive(ctx context.Context) (*entity.MigrationRun, error)

	// List 分页获取运行记录（按创建时间倒序）
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.MigrationRun], error)
}
