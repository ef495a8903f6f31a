package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/parley/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 5*time.Minute, cfg.ReapInterval)
	assert.Equal(t, 30*time.Minute, cfg.IdleAfter)
	assert.Empty(t, cfg.Redis.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	content := `
listen: ":9090"
log_level: debug
reap_interval: 1m
idle_after: 10m
origins:
  - "app.voyago.example"
redis:
  addr: "localhost:6379"
  db: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.ReapInterval)
	assert.Equal(t, 10*time.Minute, cfg.IdleAfter)
	assert.Equal(t, []string{"app.voyago.example"}, cfg.Origins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`listen: ":9090"`), 0o644))

	t.Setenv("PARLEY_LISTEN", ":7070")
	t.Setenv("PARLEY_IDLE_AFTER", "45m")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, 45*time.Minute, cfg.IdleAfter)
}

func TestLoad_BadInputs(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad duration in env", func(t *testing.T) {
		t.Setenv("PARLEY_REAP_INTERVAL", "soon")
		_, err := config.Load("")
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "parley.yaml")
		require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o644))
		_, err := config.Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.ReapInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.IdleAfter = -time.Minute
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Listen = ""
	assert.Error(t, cfg.Validate())
}
