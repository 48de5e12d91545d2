package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerLifecycle(t *testing.T) {
	tracker := NewProgressTracker()

	snap := tracker.GetProgress()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, "Migration not started", tracker.GetProgressSummary())

	tracker.StartTracking()
	snap = tracker.GetProgress()
	assert.True(t, snap.IsRunning)
	assert.Equal(t, "initializing", snap.CurrentStage)
	assert.Zero(t, snap.Percentage)

	tracker.UpdateProgress(ProgressUpdate{
		Stage:          "migration",
		TotalItems:     20,
		CompletedItems: 5,
		Percentage:     25,
	})
	snap = tracker.GetProgress()
	assert.Equal(t, "migration", snap.CurrentStage)
	assert.Equal(t, 20, snap.TotalItems)
	assert.Equal(t, 5, snap.CompletedItems)
	assert.InDelta(t, 25, snap.Percentage, 0.001)
	assert.Equal(t, "migration: 25.0%", tracker.GetProgressSummary())

	tracker.Complete()
	snap = tracker.GetProgress()
	assert.False(t, snap.IsRunning)
	assert.InDelta(t, 100, snap.Percentage, 0.001)
	assert.Contains(t, tracker.GetProgressSummary(), "Migration completed in")
}

func TestProgressTrackerIgnoresUpdatesWhenNotRunning(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.UpdateProgress(ProgressUpdate{Stage: "migration", Percentage: 50})
	snap := tracker.GetProgress()
	assert.False(t, snap.IsRunning)
	assert.Zero(t, snap.Percentage)

	tracker.StartTracking()
	tracker.Complete()
	tracker.UpdateProgress(ProgressUpdate{Stage: "migration", Percentage: 50})
	snap = tracker.GetProgress()
	assert.InDelta(t, 100, snap.Percentage, 0.001)
}

func TestProgressTrackerKeepsStageWhenUpdateOmitsIt(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.StartTracking()

	tracker.UpdateProgress(ProgressUpdate{Stage: "migration", TotalItems: 10})
	tracker.UpdateProgress(ProgressUpdate{TotalItems: 10, CompletedItems: 3, Percentage: 30})

	snap := tracker.GetProgress()
	assert.Equal(t, "migration", snap.CurrentStage)
	assert.Equal(t, 3, snap.CompletedItems)
}

func TestProgressTrackerEstimatedTimeRemaining(t *testing.T) {
	tracker := NewProgressTracker()

	// 未开始或 0% 时不做外推
	assert.Zero(t, tracker.GetProgress().EstimatedTimeRemaining)
	tracker.StartTracking()
	assert.Zero(t, tracker.GetProgress().EstimatedTimeRemaining)

	tracker.UpdateProgress(ProgressUpdate{Stage: "migration", TotalItems: 2, CompletedItems: 1, Percentage: 50})
	assert.GreaterOrEqual(t, tracker.GetProgress().EstimatedTimeRemaining.Nanoseconds(), int64(0))

	tracker.Complete()
	assert.Zero(t, tracker.GetProgress().EstimatedTimeRemaining)
}

func TestProgressTrackerFail(t *testing.T) {
	tracker := NewProgressTracker()

	// 未开始时 Fail 是空操作
	tracker.Fail()
	assert.Equal(t, "Migration not started", tracker.GetProgressSummary())

	tracker.StartTracking()
	tracker.UpdateProgress(ProgressUpdate{Stage: "migration", TotalItems: 4, CompletedItems: 1, Percentage: 25})
	tracker.Fail()

	// 失败后不再显示运行中，保留失败时刻的阶段与百分比
	snap := tracker.GetProgress()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, "migration", snap.CurrentStage)
	assert.InDelta(t, 25, snap.Percentage, 0.001)
	assert.Zero(t, snap.EstimatedTimeRemaining)
	assert.Equal(t, "Migration failed at migration: 25.0%", tracker.GetProgressSummary())

	// 已完成的跟踪不会被 Fail 改写
	tracker.StartTracking()
	tracker.Complete()
	tracker.Fail()
	assert.Contains(t, tracker.GetProgressSummary(), "Migration completed in")
}

func TestProgressTrackerStartResetsPreviousRun(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.StartTracking()
	tracker.UpdateProgress(ProgressUpdate{Stage: "migration", TotalItems: 10, CompletedItems: 10, Percentage: 100})
	tracker.Complete()

	tracker.StartTracking()
	snap := tracker.GetProgress()
	assert.True(t, snap.IsRunning)
	assert.Equal(t, "initializing", snap.CurrentStage)
	assert.Zero(t, snap.TotalItems)
	assert.Zero(t, snap.CompletedItems)
	assert.Zero(t, snap.Percentage)
}
