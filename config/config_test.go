package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/outcomex/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeYAML(t, "engine:\n  treasury: \"0xb2\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "0xb2", cfg.Engine.Treasury)
	assert.Equal(t, uint8(6), cfg.Engine.TokenDecimals)
	assert.Equal(t, uint64(1_000_000), cfg.Engine.MinLiquidity)
	assert.Equal(t, 48*time.Hour, cfg.DisputeWindow())
	assert.Equal(t, time.Minute, cfg.ReviewInterval())
	assert.Equal(t, 15*time.Second, cfg.AssessorTimeout())
	assert.InDelta(t, 0.7, cfg.Review.MinConfidence, 1e-9)
	assert.Equal(t, "outcomex.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := config.Load("config.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, uint64(100), cfg.Engine.PlatformBuyBps)
	assert.Equal(t, uint64(200), cfg.Engine.LPSellBps)
	assert.True(t, cfg.Engine.Insurance.Enabled)
	assert.Equal(t, uint64(5_000), cfg.Engine.Insurance.AllocationBps)
	assert.Equal(t, 4, cfg.Review.Workers)
	assert.Empty(t, cfg.Assessor.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MARKET_DB_DSN", ":memory:")
	t.Setenv("MARKET_AUTHORITY", "0xa1")
	t.Setenv("ASSESSOR_URL", "http://assessor.local")
	t.Setenv("ASSESSOR_TOKEN", "tok")
	t.Setenv("REVIEW_MIN_CONFIDENCE", "0.9")

	cfg, err := config.Load(writeYAML(t, "log:\n  level: warn\nstorage:\n  dsn: file.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "0xa1", cfg.Engine.Authority)
	assert.Equal(t, "http://assessor.local", cfg.Assessor.URL)
	assert.Equal(t, "tok", cfg.Assessor.Token)
	assert.InDelta(t, 0.9, cfg.Review.MinConfidence, 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeYAML(t, "engine: [not a map"))
	assert.Error(t, err)

	t.Setenv("REVIEW_MIN_CONFIDENCE", "high")
	_, err = config.Load("")
	assert.ErrorContains(t, err, "REVIEW_MIN_CONFIDENCE")
}
