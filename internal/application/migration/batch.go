package migration

import (
	"context"
	"fmt"
	"time"

	apperrors "z-novel-migration/pkg/errors"
	"z-novel-migration/pkg/metrics"
)

const (
	// MinBatchSize 批大小下限
	MinBatchSize = 1
	// MaxBatchSize 批大小上限
	MaxBatchSize = 100
	// DefaultBatchSize 默认批大小
	DefaultBatchSize = 10
)

// BatchWorker 处理一个批次的工作函数
type BatchWorker[T any] func(ctx context.Context, batch []T) error

// BatchSummary 批处理汇总
type BatchSummary struct {
	TotalBatches     int     `json:"total_batches"`
	CompletedBatches int     `json:"completed_batches"`
	ProcessedItems   int     `json:"processed_items"`
	Percentage       float64 `json:"percentage"`
}

// ProcessInBatches 将有序集合切成连续批次后顺序处理
// 批次之间严格串行，保证编排器依赖的跨批次顺序（如全局章节号单调递增）。
// worker 报错立即中止并返回该错误，已完成批次计数保持准确；
// 空集合返回 {0, 0, 0, 100}，零工作量视为已全部完成。
func ProcessInBatches[T any](ctx context.Context, items []T, batchSize int, worker BatchWorker[T]) (BatchSummary, error) {
	if batchSize < MinBatchSize {
		return BatchSummary{}, apperrors.ErrInvalidBatchSize.WithDetail(fmt.Sprintf("got %d", batchSize))
	}
	if len(items) == 0 {
		return BatchSummary{Percentage: 100}, nil
	}

	totalBatches := (len(items) + batchSize - 1) / batchSize
	summary := BatchSummary{TotalBatches: totalBatches}

	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			summary.Percentage = percentage(summary.CompletedBatches, totalBatches)
			return summary, err
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		batchStart := time.Now()
		if err := worker(ctx, batch); err != nil {
			summary.Percentage = percentage(summary.CompletedBatches, totalBatches)
			return summary, err
		}
		metrics.MigrationBatchDuration.Observe(time.Since(batchStart).Seconds())

		summary.CompletedBatches++
		summary.ProcessedItems += len(batch)
	}

	summary.Percentage = percentage(summary.CompletedBatches, totalBatches)
	return summary, nil
}

// OptimizeBatchSize 通过小样本计时推算接近目标批耗时的批大小
// 样本为空、worker 缺失或计时失败时返回夹取后的默认值，
// 结果始终落在 [MinBatchSize, MaxBatchSize] 区间。
func OptimizeBatchSize[T any](ctx context.Context, sample []T, defaultSize int, targetBatchDuration time.Duration, worker BatchWorker[T]) int {
	if len(sample) == 0 || worker == nil || targetBatchDuration <= 0 {
		return clampBatchSize(defaultSize)
	}

	start := time.Now()
	if err := worker(ctx, sample); err != nil {
		return clampBatchSize(defaultSize)
	}
	elapsed := time.Since(start)

	perItem := elapsed / time.Duration(len(sample))
	if perItem <= 0 {
		return MaxBatchSize
	}

	return clampBatchSize(int(targetBatchDuration / perItem))
}

func clampBatchSize(size int) int {
	if size < MinBatchSize {
		return MinBatchSize
	}
	if size > MaxBatchSize {
		return MaxBatchSize
	}
	return size
}

func percentage(completed, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(completed) / float64(total) * 100
}
