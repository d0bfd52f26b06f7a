package app

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "config-secret-config-secret-config")
	t.Setenv("APP_ENV", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 5, cfg.SMSMaxRetry)
	assert.Equal(t, "@every 1h", cfg.IdempotencyCleanCron)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsShortSecretInProduction(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("APP_ENV", "production")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsRefreshShorterThanAccess(t *testing.T) {
	t.Setenv("JWT_SECRET", "config-secret-config-secret-config")
	t.Setenv("APP_ENV", "development")
	t.Setenv("ACCESS_TOKEN_TTL", "2h")
	t.Setenv("REFRESH_TOKEN_TTL", "1h")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestSMSEnabled(t *testing.T) {
	assert.False(t, (&Config{}).SMSEnabled())
	assert.True(t, (&Config{SMSGatewayURL: "https://sms.example.test/send"}).SMSEnabled())
	assert.False(t, (*Config)(nil).SMSEnabled())
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("booked", slog.String("tracking_id", "TRK-000001"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"tracking_id":"TRK-000001"`)
	assert.Contains(t, out, `"env":"production"`)
}
