package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
database:
  url: postgres://app@localhost/campaigns
scheduler:
  cadence_seconds: 30
  control_secret: hunter2
  auto_start: true
tracking:
  base_url: https://track.example.com
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, "postgres://app@localhost/campaigns", cfg.Database.URL)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Cadence())
	assert.Equal(t, "hunter2", cfg.Scheduler.ControlSecret)
	assert.True(t, cfg.Scheduler.AutoStart)
	assert.Equal(t, "https://track.example.com", cfg.Tracking.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://app@localhost/campaigns
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "us-east-1", cfg.SES.Region)
	assert.Equal(t, 30*time.Second, cfg.SES.SendTimeout())
	assert.Equal(t, time.Minute, cfg.Scheduler.Cadence())
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.LockTTL())
	assert.Equal(t, "http://localhost:8080", cfg.Tracking.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://file@localhost/campaigns
`)

	t.Setenv("DATABASE_URL", "postgres://env@localhost/campaigns")
	t.Setenv("SCHEDULER_CONTROL_SECRET", "env-secret")
	t.Setenv("TRACKING_BASE_URL", "https://env.example.com")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env@localhost/campaigns", cfg.Database.URL)
	assert.Equal(t, "env-secret", cfg.Scheduler.ControlSecret)
	assert.Equal(t, "https://env.example.com", cfg.Tracking.BaseURL)
}
