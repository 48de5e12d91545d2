// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/domain/repository"
)

// MigrationRunRepository 迁移运行台账仓储实现
type MigrationRunRepository struct {
	client *Client
}

// NewMigrationRunRepository 创建迁移运行台账仓储
func NewMigrationRunRepository(client *Client) *MigrationRunRepository {
	return &MigrationRunRepository{client: client}
}

// Create 创建迁移运行记录
func (r *MigrationRunRepository) Create(ctx context.Context, run *entity.MigrationRun) error {
	ctx, span := tracer.Start(ctx, "postgres.MigrationRunRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(run).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create migration run: %w", err)
	}
	return nil
}

// Update 保存迁移运行记录的全部字段
func (r *MigrationRunRepository) Update(ctx context.Context, run *entity.MigrationRun) error {
	ctx, span := tracer.Start(ctx, "postgres.MigrationRunRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(run).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update migration run: %w", err)
	}
	return nil
}

// GetByID 按 ID 获取迁移运行记录
func (r *MigrationRunRepository) GetByID(ctx context.Context, id string) (*entity.MigrationRun, error) {
	ctx, span := tracer.Start(ctx, "postgres.MigrationRunRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var run entity.MigrationRun
	err := db.Where("id = ?", id).First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get migration run: %w", err)
	}
	return &run, nil
}

// GetLatestRollbackable 获取最近一次可回滚的运行记录
func (r *MigrationRunRepository) GetLatestRollbackable(ctx context.Context) (*entity.MigrationRun, error) {
	ctx, span := tracer.Start(ctx, "postgres.MigrationRunRepository.GetLatestRollbackable")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var run entity.MigrationRun
	err := db.Where("status IN ?", []entity.MigrationRunStatus{
		entity.MigrationRunStatusRunning,
		entity.MigrationRunStatusCompleted,
		entity.MigrationRunStatusFailed,
		entity.MigrationRunStatusRollbackFailed,
	}).
		Where("dry_run = ?", false).
		Order("created_at DESC").
		First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get latest rollbackable run: %w", err)
	}
	return &run, nil
}

// GetActive 获取当前处于活跃状态的运行记录，没有则返回 nil
func (r *MigrationRunRepository) GetActive(ctx context.Context) (*entity.MigrationRun, error) {
	ctx, span := tracer.Start(ctx, "postgres.MigrationRunRepository.GetActive")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var run entity.MigrationRun
	err := db.Where("status IN ?", []entity.MigrationRunStatus{
		entity.MigrationRunStatusPending,
		entity.MigrationRunStatusRunning,
	}).
		Order("created_at DESC").
		First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get active migration run: %w", err)
	}
	return &run, nil
}

// List 分页获取迁移运行记录
func (r *MigrationRunRepository) List(ctx context.Context, p repository.Pagination) (*repository.PagedResult[*entity.MigrationRun], error) {
	ctx, span := tracer.Start(ctx, "postgres.MigrationRunRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var total int64
	if err := db.Model(&entity.MigrationRun{}).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count migration runs: %w", err)
	}

	var runs []*entity.MigrationRun
	if err := db.Order("created_at DESC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Find(&runs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list migration runs: %w", err)
	}

	return repository.NewPagedResult(runs, total, p), nil
}
