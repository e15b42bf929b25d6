package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hostloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, 60, cfg.CrashGuard.AdvanceCeiling)
	assert.Equal(t, 256, cfg.Monitor.Buffer)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
tick_rate: 30
crash_guard:
  advance_ceiling: 5
journal:
  path: /tmp/events.db
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.TickRate)
	assert.Equal(t, 5, cfg.CrashGuard.AdvanceCeiling)
	assert.Equal(t, 60, cfg.CrashGuard.RenderCeiling)
	assert.Equal(t, "/tmp/events.db", cfg.Journal.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "tick_rat: 30\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_rat")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "tick_rate: 30\n")
	t.Setenv("HOSTLOOP_TICK_RATE", "120")
	t.Setenv("HOSTLOOP_CRASH_GUARD_RENDER_CEILING", "3")
	t.Setenv("HOSTLOOP_MONITOR_ADDR", "127.0.0.1:9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.TickRate)
	assert.Equal(t, 3, cfg.CrashGuard.RenderCeiling)
	assert.Equal(t, "127.0.0.1:9090", cfg.Monitor.Addr)
}

func TestLoad_EnvInvalid(t *testing.T) {
	t.Setenv("HOSTLOOP_TICK_RATE", "fast")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TickRate = 0
	cfg.CrashGuard.AdvanceCeiling = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_rate")
	assert.Contains(t, err.Error(), "advance_ceiling")
	assert.Contains(t, err.Error(), "log.format")
}
