package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoff(t *testing.T) {
	cfg := DefaultBackoffConfig()

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, time.Minute},
		{100, time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.CalculateBackoff(tt.retryCount), "retry %d", tt.retryCount)
	}
}

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	cfg := BackoffConfig{Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, cfg.CalculateBackoff(0))
	assert.Equal(t, 400*time.Millisecond, cfg.CalculateBackoff(2))
	assert.Equal(t, 500*time.Millisecond, cfg.CalculateBackoff(3))
	assert.Equal(t, 500*time.Millisecond, cfg.CalculateBackoff(10))
}

func TestMessageMetadata(t *testing.T) {
	msg, err := NewMessage("cmd-1", MessageTypeRunMigration, "", map[string]int{"batch_size": 10})
	require.NoError(t, err)

	assert.Empty(t, msg.GetMetadata("retry_count"))
	msg.SetMetadata("retry_count", "2")
	assert.Equal(t, "2", msg.GetMetadata("retry_count"))

	var payload map[string]int
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, 10, payload["batch_size"])

	// 零值消息上的读写不会崩
	var zero Message
	assert.Empty(t, zero.GetMetadata("anything"))
	zero.SetMetadata("k", "v")
	assert.Equal(t, "v", zero.GetMetadata("k"))
}

func TestDLQStreamName(t *testing.T) {
	assert.Equal(t, "dlq:stream:migration:cmd", StreamMigrationCmd.DLQStream())
	assert.Equal(t, "dlq:stream:migration:events", StreamMigrationEvents.DLQStream())
}
