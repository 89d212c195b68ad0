package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.MinConns)
	assert.Equal(t, "https://www.googleapis.com/pagespeedonline/v5", cfg.PageSpeed.BaseURL)
	assert.InDelta(t, 1.0, cfg.PageSpeed.RPS, 0.001)
	assert.Equal(t, "https://searchconsole.googleapis.com/v1", cfg.SearchConsole.BaseURL)
	assert.Equal(t, "https://www.brightwayclinics.com/", cfg.SearchConsole.SiteURL)
	assert.Equal(t, "https://www.brightwayclinics.com", cfg.Audit.BaseURL)
	assert.Equal(t, 2, cfg.Audit.DelaySecs)
	assert.Equal(t, "0 3 * * *", cfg.Schedule.Nightly)
	assert.Equal(t, "0 4 * * 0", cfg.Schedule.Weekly)
	assert.Equal(t, "America/New_York", cfg.Schedule.Timezone)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  database_url: audits.db
pagespeed:
  key: psi-key
audit:
  delay_secs: 5
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "audits.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "psi-key", cfg.PageSpeed.Key)
	assert.Equal(t, 5, cfg.Audit.DelaySecs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Untouched keys keep their defaults.
	assert.Equal(t, "0 3 * * *", cfg.Schedule.Nightly)
	assert.Equal(t, "https://www.brightwayclinics.com", cfg.Audit.BaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("SEOAUDIT_STORE_DRIVER", "sqlite")
	t.Setenv("SEOAUDIT_PAGESPEED_KEY", "env-key")
	t.Setenv("SEOAUDIT_SCHEDULE_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "env-key", cfg.PageSpeed.Key)
	assert.Equal(t, "UTC", cfg.Schedule.Timezone)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
