package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("MIGRATION_TEST_HOST", "db.internal")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set variable", "${MIGRATION_TEST_HOST}", "db.internal"},
		{"set variable ignores default", "${MIGRATION_TEST_HOST:fallback}", "db.internal"},
		{"unset with default", "${MIGRATION_TEST_UNSET:fallback}", "fallback"},
		{"unset with empty default", "${MIGRATION_TEST_UNSET:}", ""},
		{"unset without default keeps placeholder", "${MIGRATION_TEST_UNSET}", "${MIGRATION_TEST_UNSET}"},
		{"mixed text", "addr: ${MIGRATION_TEST_HOST}:${MIGRATION_TEST_PORT:5432}", "addr: db.internal:5432"},
		{"no placeholder", "plain value", "plain value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.input))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "z-novel-migration", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, "localhost", cfg.Database.Postgres.Host)
	assert.Equal(t, 10, cfg.Migration.BatchSize)
	assert.True(t, cfg.Migration.AutoRollback)
	assert.True(t, cfg.Migration.ValidateBeforeRun)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MIGRATION_BATCH_SIZE", "25")
	t.Setenv("DATABASE_POSTGRES_HOST", "pg.internal")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Migration.BatchSize)
	assert.Equal(t, "pg.internal", cfg.Database.Postgres.Host)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Migration.BatchSize = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration.batch_size")

	cfg.Migration.BatchSize = 10
	cfg.Database.Postgres.Host = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.postgres.host")
}
