package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationRunLifecycle(t *testing.T) {
	run := NewMigrationRun(25, false)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, MigrationRunStatusPending, run.Status)
	assert.Equal(t, "initializing", run.Stage)
	assert.Equal(t, 25, run.BatchSize)
	assert.False(t, run.DryRun)
	assert.Zero(t, run.Duration())

	run.Start(40)
	assert.Equal(t, MigrationRunStatusRunning, run.Status)
	assert.Equal(t, "migration", run.Stage)
	assert.Equal(t, 40, run.TotalBooks)
	require.NotNil(t, run.StartedAt)

	run.ApplyCounts(10, 50, 10, 10, 50)
	run.ApplyCounts(5, 20, 5, 5, 20)
	assert.Equal(t, 15, run.MigratedBooks)
	assert.Equal(t, 70, run.MigratedChapters)
	assert.Equal(t, 15, run.CreatedStories)
	assert.Equal(t, 15, run.CreatedParts)
	assert.Equal(t, 70, run.CreatedScenes)

	run.Complete()
	assert.Equal(t, MigrationRunStatusCompleted, run.Status)
	assert.Equal(t, "completed", run.Stage)
	require.NotNil(t, run.FinishedAt)
	assert.GreaterOrEqual(t, run.Duration(), time.Duration(0))
}

func TestMigrationRunFail(t *testing.T) {
	run := NewMigrationRun(10, false)
	run.Start(5)

	run.Fail("batch 2 write failed")

	assert.Equal(t, MigrationRunStatusFailed, run.Status)
	assert.Equal(t, "batch 2 write failed", run.ErrorMessage)
	require.NotNil(t, run.FinishedAt)
}

func TestMigrationRunRollbackable(t *testing.T) {
	run := NewMigrationRun(10, false)
	assert.False(t, run.Rollbackable(), "pending run has not written tagged rows yet")

	run.Start(5)
	assert.True(t, run.Rollbackable(), "interrupted running run may have tagged rows")

	run.Complete()
	assert.True(t, run.Rollbackable())

	run.Fail("boom")
	assert.True(t, run.Rollbackable())

	run.MarkRollbackFailed("2 rollback phases failed")
	assert.True(t, run.Rollbackable(), "partial rollback leaves rows behind")
	assert.Equal(t, "2 rollback phases failed", run.ErrorMessage)

	run.MarkRolledBack()
	assert.False(t, run.Rollbackable())
	assert.Equal(t, MigrationRunStatusRolledBack, run.Status)
	assert.Equal(t, "rolled_back", run.Stage)
}

func TestMigrationRunDryRunNeverRollbackable(t *testing.T) {
	dry := NewMigrationRun(10, true)
	dry.Start(5)
	dry.Complete()

	assert.False(t, dry.Rollbackable())
}
