package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_ProcessVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("BRIEFLY_SERVER_URL", "https://api.example")
	t.Setenv("BRIEFLY_REQUEST_TIMEOUT", "5s")
	t.Setenv("BRIEFLY_EPHEMERAL", "true")
	t.Setenv("BRIEFLY_S3_BUCKET", "exports")
	t.Setenv("BRIEFLY_S3_LINK_TTL", "not-a-duration")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, "")

	assert.Equal(t, "https://api.example", cfg.ServerURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Ephemeral)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, 15*time.Minute, cfg.S3.LinkTTL, "malformed duration keeps the previous value")
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("BRIEFLY_DOWNLOAD_DIR")
	t.Cleanup(func() { os.Unsetenv("BRIEFLY_DOWNLOAD_DIR") })
	t.Setenv("BRIEFLY_LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BRIEFLY_DOWNLOAD_DIR=/tmp/briefly\nBRIEFLY_LOG_LEVEL=debug\n"), 0o600))

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, path)

	assert.Equal(t, "/tmp/briefly", cfg.DownloadDir)
	assert.Equal(t, "warn", cfg.LogLevel, "process env wins over .env")
}

func TestParseEnv_MissingFileIsIgnored(t *testing.T) {
	clearEnv(t)

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NotPanics(t, func() { parseEnv(cfg, filepath.Join(t.TempDir(), "absent.env")) })
	assert.Equal(t, "http://127.0.0.1:8000", cfg.ServerURL)
}
