package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs is a helper that sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:9200", cfg.ElasticsearchURL)
	assert.Equal(t, EngineElasticsearch, cfg.SearchEngine)
	assert.Equal(t, StoreFile, cfg.ConfigStore)
	assert.True(t, cfg.ConfigWatch)
	assert.False(t, cfg.AllowUnknownTenants)
	assert.Equal(t, 10, cfg.SearcherCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.SearcherCacheTTL)
	assert.Empty(t, cfg.IndexerAPIToken)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	setEnvs(t, map[string]string{
		"SEARCH_ENGINE":       "memory",
		"SEARCH_CONFIG_STORE": "postgres",
		"SEARCHER_CACHE_SIZE": "3",
		"SEARCHER_CACHE_TTL":  "30s",
		"INDEXER_API_TOKEN":   "token",
		"KAFKA_ENABLED":       "true",
		"KAFKA_BROKERS":       "k1:9092,k2:9092",
		"POSTGRES_HOST":       "db",
		"OTEL_ENABLED":        "true",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, EngineMemory, cfg.SearchEngine)
	assert.Equal(t, StorePostgres, cfg.ConfigStore)
	assert.Equal(t, 3, cfg.SearcherCacheSize)
	assert.Equal(t, 30*time.Second, cfg.SearcherCacheTTL)
	assert.Equal(t, "token", cfg.IndexerAPIToken)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want string
	}{
		{"http port", map[string]string{"SEARCH_HTTP_PORT": "0"}, "invalid HTTP port"},
		{"engine", map[string]string{"SEARCH_ENGINE": "solr"}, "SEARCH_ENGINE"},
		{"store", map[string]string{"SEARCH_CONFIG_STORE": "consul"}, "SEARCH_CONFIG_STORE"},
		{"cache size", map[string]string{"SEARCHER_CACHE_SIZE": "0"}, "SEARCHER_CACHE_SIZE"},
		{"cache ttl", map[string]string{"SEARCHER_CACHE_TTL": "-1s"}, "SEARCHER_CACHE_TTL"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2.0"}, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
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
