package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config.yaml present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "brokerscan.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 15, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 1.0, cfg.Fetch.HostRPS)
	assert.Empty(t, cfg.Fetch.Proxies)
	assert.Equal(t, "stop_on_results", cfg.Scan.Mode)
	assert.Equal(t, []string{"truepeoplesearch", "fastpeoplesearch", "radaris", "zabasearch"}, cfg.Scan.Sources)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BROKERSCAN_STORE_DRIVER", "postgres")
	t.Setenv("BROKERSCAN_SCAN_MODE", "exhaustive")
	t.Setenv("BROKERSCAN_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "exhaustive", cfg.Scan.Mode)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/config.yaml", `
store:
  driver: sqlite
  database_url: /tmp/scan-test.db
fetch:
  proxies:
    - https://proxy.example/get?url={url}
scan:
  mode: exhaustive
  sources: [radaris, zabasearch]
`)
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/scan-test.db", cfg.Store.DatabaseURL)
	assert.Equal(t, []string{"https://proxy.example/get?url={url}"}, cfg.Fetch.Proxies)
	assert.Equal(t, []string{"radaris", "zabasearch"}, cfg.Scan.Sources)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouty", Format: "json"})
	require.Error(t, err)

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
