package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8011, cfg.HTTPPort)
	assert.Equal(t, SourceRedis, cfg.DataSource)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 30*time.Minute, cfg.MaxIdle)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	assert.Equal(t, 50.0, cfg.RateLimit)
	assert.Equal(t, 100, cfg.RateBurst)
	assert.Equal(t, language.English, cfg.LocaleTag())
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	setEnvs(t, map[string]string{
		"SUGGEST_HTTP_PORT":    "9011",
		"SUGGEST_DATA_SOURCE":  "file",
		"SUGGEST_DATA_FILE":    "/etc/ocs/suggest.yaml",
		"SUGGEST_LOCALE":       "de",
		"SUGGEST_MAX_IDLE":     "5m",
		"SUGGEST_REFRESH_CRON": "@every 1h",
		"SUGGEST_RATE_LIMIT":   "0",
		"REDIS_HOST":           "cache",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9011, cfg.HTTPPort)
	assert.Equal(t, SourceFile, cfg.DataSource)
	assert.Equal(t, "/etc/ocs/suggest.yaml", cfg.DataFile)
	assert.Equal(t, language.German, cfg.LocaleTag())
	assert.Equal(t, 5*time.Minute, cfg.MaxIdle)
	assert.Equal(t, "@every 1h", cfg.RefreshCron)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want string
	}{
		{"http port", map[string]string{"SUGGEST_HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"data source", map[string]string{"SUGGEST_DATA_SOURCE": "s3"}, "SUGGEST_DATA_SOURCE"},
		{"locale", map[string]string{"SUGGEST_LOCALE": "not a locale"}, "SUGGEST_LOCALE"},
		{"max idle", map[string]string{"SUGGEST_MAX_IDLE": "0s"}, "SUGGEST_MAX_IDLE"},
		{"rate limit", map[string]string{"SUGGEST_RATE_LIMIT": "-1"}, "SUGGEST_RATE_LIMIT"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
