package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "trainee-events-hub", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "0 2 * * *", cfg.Scheduler.ReconcileCron)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.SweepGracePeriod)
	assert.Equal(t, 2.0, cfg.Feed.RateLimit)
	assert.Empty(t, cfg.Feed.Sources)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FEED_SOURCES", "journal-club-{month}, grand-rounds-{month}")
	t.Setenv("FEED_BASE_URL", "https://exports.institute.test")
	t.Setenv("SCHEDULER_OPERATOR_ID", "op-1")
	t.Setenv("SCHEDULER_SWEEP_GRACE", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"journal-club-{month}", "grand-rounds-{month}"}, cfg.Feed.Sources)
	assert.Equal(t, 48*time.Hour, cfg.Scheduler.SweepGracePeriod)
}

func TestLoad_SourcesRequireOperator(t *testing.T) {
	t.Setenv("FEED_SOURCES", "journal-club-{month}")
	t.Setenv("FEED_BASE_URL", "https://exports.institute.test")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_OPERATOR_ID")
}

func TestLoad_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
feed:
  csv_dir: /srv/exports/sheets
  sources:
    - journal-club-{month}
scheduler:
  operator_id: 7f3e0000-0000-0000-0000-000000000001
  sweep_interval: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/exports/sheets", cfg.Feed.CSVDir)
	assert.Equal(t, []string{"journal-club-{month}"}, cfg.Feed.Sources)
	assert.Equal(t, "7f3e0000-0000-0000-0000-000000000001", cfg.Scheduler.OperatorID)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.SweepInterval)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
feed:
  base_url: https://from-file.test
  sources:
    - journal-club-{month}
scheduler:
  operator_id: op-file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("FEED_BASE_URL", "https://from-env.test")
	t.Setenv("SCHEDULER_OPERATOR_ID", "op-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.test", cfg.Feed.BaseURL)
	assert.Equal(t, "op-env", cfg.Scheduler.OperatorID)
}
