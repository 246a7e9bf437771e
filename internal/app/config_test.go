package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 3, cfg.OrderMaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.OrderRetryBackoff)
	assert.Equal(t, "10", cfg.LowStockThreshold.String())
	assert.Equal(t, 5*time.Minute, cfg.ProductCacheTTL)
	assert.True(t, cfg.DBAutoMigrate)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOW_STOCK_THRESHOLD", "2.5")
	t.Setenv("ORDER_MAX_RETRIES", "7")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "2.5", cfg.LowStockThreshold.String())
	assert.Equal(t, 7, cfg.OrderMaxRetries)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfigRejectsOutOfRange(t *testing.T) {
	cases := map[string]map[string]string{
		"retries zero":       {"ORDER_MAX_RETRIES": "0"},
		"retries too many":   {"ORDER_MAX_RETRIES": "11"},
		"threshold zero":     {"LOW_STOCK_THRESHOLD": "0"},
		"threshold negative": {"LOW_STOCK_THRESHOLD": "-4"},
		"threshold garbage":  {"LOW_STOCK_THRESHOLD": "lots"},
		"unknown timezone":   {"APP_TIMEZONE": "Mars/Olympus"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
