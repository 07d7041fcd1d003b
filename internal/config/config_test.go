package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[scheduler]
workers = 8
cascade_limit = 50
shutdown_budget = 5000000

[logging]
level = "debug"
format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Scheduler.Workers)
	assert.Equal(t, 50, cfg.Scheduler.CascadeLimit)
	assert.Equal(t, 5*time.Millisecond, cfg.Scheduler.ShutdownBudget)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Untouched sections keep their defaults.
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0, cfg.Scheduler.Workers, "0 means unbounded")
	assert.Equal(t, 10*time.Millisecond, cfg.Scheduler.ShutdownBudget)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}
