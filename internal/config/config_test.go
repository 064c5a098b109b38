package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fractor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesPoolsAndQueue(t *testing.T) {
	path := writeConfig(t, `
pools:
  - worker_class: squares
    num_workers: 3
continuous_mode: true
queue:
  priority: true
  aging_threshold: 5s
cache:
  enabled: true
  max_entries: 500
  default_ttl: 1m
metrics:
  enabled: true
  port: 9999
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, "squares", cfg.Pools[0].WorkerClass)
	assert.Equal(t, 3, cfg.Pools[0].NumWorkers)
	assert.True(t, cfg.ContinuousMode)
	assert.True(t, cfg.Queue.Priority)
	assert.Equal(t, 5*time.Second, cfg.Queue.AgingThreshold)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 9999, cfg.Metrics.Port)
}

func TestLoadParsesWorkSource(t *testing.T) {
	path := writeConfig(t, `
pools:
  - worker_class: squares
    num_workers: 1
work_source:
  enabled: true
  address: 127.0.0.1:7001
  max_items: 8
  poll_timeout: 2s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.WorkSource.Enabled)
	assert.Equal(t, "127.0.0.1:7001", cfg.WorkSource.Address)
	assert.Equal(t, 8, cfg.WorkSource.MaxItems)
	assert.Equal(t, 2*time.Second, cfg.WorkSource.PollTimeout)
}

func TestLoadRejectsNoPools(t *testing.T) {
	path := writeConfig(t, "pools: []\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultHasOnePool(t *testing.T) {
	cfg := Default()
	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestApplyEnvOverridesDebug(t *testing.T) {
	t.Setenv("FRACTOR_DEBUG", "true")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.True(t, cfg.Debug)
}

func TestApplyEnvOverridesLeavesDebugWhenUnset(t *testing.T) {
	os.Unsetenv("FRACTOR_DEBUG")
	cfg := Default()
	cfg.Debug = false
	cfg.ApplyEnvOverrides()
	assert.False(t, cfg.Debug)
}

func TestLogLevelDefaultsToInfo(t *testing.T) {
	os.Unsetenv("FRACTOR_LOG_LEVEL")
	assert.Equal(t, "INFO", LogLevel())
}

func TestLogLevelReadsEnv(t *testing.T) {
	t.Setenv("FRACTOR_LOG_LEVEL", "debug")
	assert.Equal(t, "DEBUG", LogLevel())
}

func TestLogOutputDefaultsToStderr(t *testing.T) {
	os.Unsetenv("FRACTOR_LOG_OUTPUT")
	assert.Equal(t, "stderr", LogOutput())
}

func TestTraceEnabled(t *testing.T) {
	os.Unsetenv("FRACTOR_TRACE")
	assert.False(t, TraceEnabled())
	t.Setenv("FRACTOR_TRACE", "1")
	assert.True(t, TraceEnabled())
}
