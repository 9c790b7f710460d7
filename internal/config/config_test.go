package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug: true
database:
  driver: postgres
  dsn: "postgres://famimport@localhost:5432/family"
import:
  source_tag: LOYD
  batch_size: 250
  tx_timeout: 45s
validation:
  max_lifespan: 110
`), 0o600))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://famimport@localhost:5432/family", cfg.Database.DSN)
	assert.Equal(t, "LOYD", cfg.Import.SourceTag)
	assert.Equal(t, 250, cfg.Import.BatchSize)
	assert.Equal(t, 45*time.Second, cfg.Import.TxTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Import.RunTimeout)
	assert.Equal(t, 110, cfg.Validation.MaxLifespan)
}

func TestLoadFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FAMIMPORT_IMPORT_BATCH_SIZE", "7")
	t.Setenv("FAMIMPORT_IMPORT_SOURCE_TAG", "X")

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Import.BatchSize)
	assert.Equal(t, "X", cfg.Import.SourceTag)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "FAM", cfg.Import.SourceTag)
	assert.Equal(t, 100, cfg.Import.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Import.TxTimeout)
	assert.Equal(t, time.Hour, cfg.Import.StaleRunAfter)
	assert.Equal(t, 120, cfg.Validation.MaxLifespan)
}

func TestLoadCommitSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
import:
  commit:
    per_second: 4
    max_retries: 3
    initial_backoff: 250ms
`), 0o600))
	t.Setenv("FAMIMPORT_IMPORT_COMMIT_BURST", "2")

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, cfg.Import.Commit.PerSecond, 1e-9)
	assert.Equal(t, 2, cfg.Import.Commit.Burst)
	assert.Equal(t, 3, cfg.Import.Commit.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Import.Commit.InitialBackoff)
	assert.Zero(t, cfg.Import.Commit.MaxBackoff)
}
