package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/SrinivasareddyGatla/open-commerce-search/pkg/config"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/tracing"
)

const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"

	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"8010"`

	// Index engine (elasticsearch or memory)
	SearchEngine          string        `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL      string        `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchUsername string        `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string        `env:"ELASTICSEARCH_PASSWORD"`
	ElasticsearchTimeout  time.Duration `env:"ELASTICSEARCH_TIMEOUT" envDefault:"10s"`

	// Tenant search configuration (file or postgres)
	ConfigStore         string `env:"SEARCH_CONFIG_STORE" envDefault:"file"`
	ConfigFile          string `env:"SEARCH_CONFIG_FILE" envDefault:"config/search.yaml"`
	ConfigWatch         bool   `env:"SEARCH_CONFIG_WATCH" envDefault:"true"`
	AllowUnknownTenants bool   `env:"SEARCH_ALLOW_UNKNOWN_TENANTS" envDefault:"false"`

	// PostgreSQL, used by the postgres config store
	Postgres             database.PostgresConfig
	SlowQueryThresholdMs int `env:"DB_SLOW_QUERY_THRESHOLD_MS" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"SEARCH_KAFKA_GROUP_ID" envDefault:"search-service"`

	// Searcher cache
	SearcherCacheSize int           `env:"SEARCHER_CACHE_SIZE" envDefault:"10"`
	SearcherCacheTTL  time.Duration `env:"SEARCHER_CACHE_TTL" envDefault:"10m"`

	// Cache-Control max age of search responses; zero disables caching.
	SearchCacheMaxAge time.Duration `env:"SEARCH_CACHE_MAX_AGE" envDefault:"0s"`

	// Indexer API; with neither set the endpoints are disabled. The secret
	// verifies HS256 tokens minted with "ocsctl token".
	IndexerAPIToken  string `env:"INDEXER_API_TOKEN"`
	IndexerJWTSecret string `env:"INDEXER_JWT_SECRET"`

	// Observability
	Tracing           tracing.Config
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SearchEngine {
	case EngineElasticsearch, EngineMemory:
	default:
		return fmt.Errorf("SEARCH_ENGINE must be %q or %q, got %q", EngineElasticsearch, EngineMemory, c.SearchEngine)
	}
	switch c.ConfigStore {
	case StoreFile:
		if c.ConfigFile == "" {
			return fmt.Errorf("SEARCH_CONFIG_FILE is required for the file config store")
		}
	case StorePostgres:
	default:
		return fmt.Errorf("SEARCH_CONFIG_STORE must be %q or %q, got %q", StoreFile, StorePostgres, c.ConfigStore)
	}
	if c.SearcherCacheSize < 1 {
		return fmt.Errorf("SEARCHER_CACHE_SIZE must be positive, got %d", c.SearcherCacheSize)
	}
	if c.SearcherCacheTTL <= 0 {
		return fmt.Errorf("SEARCHER_CACHE_TTL must be positive, got %s", c.SearcherCacheTTL)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.Tracing.SampleRate)
	}
	return nil
}
