package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecowatch/ecowatch/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, zerolog.InfoLevel, cfg.App.LogLevel)
	assert.Equal(t, "https://api.waqi.info", cfg.WAQI.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.WAQI.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "Bangalore", cfg.Dashboard.DefaultCity)
	assert.Equal(t, "style.css", cfg.Dashboard.StylesheetPath)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("API_TOKEN", "waqi-token")
	t.Setenv("SENDER_EMAIL", "alerts@example.com")
	t.Setenv("SENDER_PASSWORD", "app-password")
	t.Setenv("SMTP_PORT", "2465")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("CACHE_MAX_ENTRIES", "16")
	t.Setenv("DEFAULT_CITY", "Pune")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("REQUIRE_TLS", "1")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "waqi-token", cfg.WAQI.Token)
	assert.Equal(t, 3*time.Second, cfg.WAQI.Timeout)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 16, cfg.Cache.MaxEntries)
	assert.Equal(t, 2465, cfg.Mail.Port)
	assert.True(t, cfg.Mail.Enabled())
	assert.Equal(t, "Pune", cfg.Dashboard.DefaultCity)
	assert.Equal(t, zerolog.DebugLevel, cfg.App.LogLevel)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.App.RequireTLS)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRatio)
}

func TestLoad_MailDisabledWithoutPassword(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "alerts@example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "ten seconds")
	t.Setenv("CACHE_MAX_ENTRIES", "many")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_TIMEOUT")
	assert.Contains(t, err.Error(), "CACHE_MAX_ENTRIES")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestLoad_SampleRatioOutOfRange(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "2")

	_, err := config.Load()
	assert.ErrorContains(t, err, "OTEL_TRACES_SAMPLER_ARG")
}

func TestLoad_NonPositiveCacheSize(t *testing.T) {
	t.Setenv("CACHE_MAX_ENTRIES", "0")

	_, err := config.Load()
	assert.ErrorContains(t, err, "must be positive")
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ECOWATCH_TEST_CITY=Chennai\nDEFAULT_CITY=${ECOWATCH_TEST_CITY}\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("ECOWATCH_TEST_CITY")
		os.Unsetenv("DEFAULT_CITY")
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Chennai", cfg.Dashboard.DefaultCity)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
