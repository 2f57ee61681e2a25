package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("STAFFSYNC_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.DataDir, "records.db"), cfg.StoreDB)
	assert.Equal(t, filepath.Join(cfg.DataDir, "snapshots.db"), cfg.SnapshotDB)
	assert.Equal(t, filepath.Join(cfg.DataDir, "audit.db"), cfg.AuditDB)
	assert.Equal(t, 3, cfg.RestoreMaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.RestoreBaseDelay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadEnvOverrides(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	t.Setenv("STAFFSYNC_DATA_DIR", dir)
	t.Setenv("STAFFSYNC_STORE_DB", filepath.Join(dir, "custom.db"))
	t.Setenv("STAFFSYNC_RESTORE_MAX_RETRIES", "5")
	t.Setenv("STAFFSYNC_RESTORE_BASE_DELAY", "250ms")
	t.Setenv("STAFFSYNC_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.StoreDB)
	// Unset paths still derive from the data dir.
	assert.Equal(t, filepath.Join(dir, "snapshots.db"), cfg.SnapshotDB)
	assert.Equal(t, 5, cfg.RestoreMaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RestoreBaseDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSetDataDirRederivesPaths(t *testing.T) {
	viper.Reset()
	t.Setenv("STAFFSYNC_DATA_DIR", t.TempDir())
	explicit := filepath.Join(t.TempDir(), "keep.db")
	t.Setenv("STAFFSYNC_AUDIT_DB", explicit)

	cfg, err := Load()
	require.NoError(t, err)

	next := t.TempDir()
	cfg.SetDataDir(next)
	assert.Equal(t, filepath.Join(next, "records.db"), cfg.StoreDB)
	assert.Equal(t, filepath.Join(next, "snapshots.db"), cfg.SnapshotDB)
	// Explicitly configured paths survive the move.
	assert.Equal(t, explicit, cfg.AuditDB)
}

func TestEnsureDataDir(t *testing.T) {
	cfg := &Config{DataDir: filepath.Join(t.TempDir(), "nested", "data")}
	require.NoError(t, cfg.EnsureDataDir())
	require.NoError(t, cfg.EnsureDataDir(), "idempotent")
}
