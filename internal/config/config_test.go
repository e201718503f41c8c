package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "ai-canvas", cfg.Storage.Namespace)
	assert.Equal(t, 2*time.Second, cfg.Autosave.Debounce)
	assert.Equal(t, 30*time.Second, cfg.Autosave.Interval)
	assert.Equal(t, 3*time.Second, cfg.Autosave.SavedDisplay)
	assert.Equal(t, 50, cfg.Export.PageLines)
	assert.Equal(t, 90, cfg.Export.PageWidth)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aicanvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
storage:
  driver: memory
autosave:
  debounce: 500ms
  interval: 1m
`), 0o644))
	t.Setenv("AICANVAS_STORAGE_NAMESPACE", "team-a")
	t.Setenv("AICANVAS_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Autosave.Debounce)
	assert.Equal(t, time.Minute, cfg.Autosave.Interval)
	assert.Equal(t, "team-a", cfg.Storage.Namespace)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"driver", "storage:\n  driver: postgres\n"},
		{"port", "server:\n  port: 70000\n"},
		{"debounce", "autosave:\n  debounce: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
