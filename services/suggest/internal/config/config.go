package config

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	pkgconfig "github.com/SrinivasareddyGatla/open-commerce-search/pkg/config"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/tracing"
)

const (
	SourceRedis = "redis"
	SourceFile  = "file"
)

// Config holds all configuration for the suggest service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort int `env:"SUGGEST_HTTP_PORT" envDefault:"8011"`

	// Suggest data (redis or file)
	DataSource string `env:"SUGGEST_DATA_SOURCE" envDefault:"redis"`
	DataFile   string `env:"SUGGEST_DATA_FILE" envDefault:"config/suggest.yaml"`
	Redis      database.RedisConfig

	// Suggesters
	Locale       string        `env:"SUGGEST_LOCALE" envDefault:"en"`
	MaxIdle      time.Duration `env:"SUGGEST_MAX_IDLE" envDefault:"30m"`
	RefreshCron  string        `env:"SUGGEST_REFRESH_CRON" envDefault:"*/15 * * * *"`
	BuildTimeout time.Duration `env:"SUGGEST_BUILD_TIMEOUT" envDefault:"30s"`

	// Per-client rate limit; zero disables it.
	RateLimit float64 `env:"SUGGEST_RATE_LIMIT" envDefault:"50"`
	RateBurst int     `env:"SUGGEST_RATE_BURST" envDefault:"100"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"SUGGEST_KAFKA_GROUP_ID" envDefault:"suggest-service"`

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
		return nil, fmt.Errorf("load suggest config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LocaleTag returns the parsed SUGGEST_LOCALE.
func (c *Config) LocaleTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.DataSource {
	case SourceRedis:
	case SourceFile:
		if c.DataFile == "" {
			return fmt.Errorf("SUGGEST_DATA_FILE is required for the file data source")
		}
	default:
		return fmt.Errorf("SUGGEST_DATA_SOURCE must be %q or %q, got %q", SourceRedis, SourceFile, c.DataSource)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid SUGGEST_LOCALE %q: %w", c.Locale, err)
	}
	if c.MaxIdle <= 0 {
		return fmt.Errorf("SUGGEST_MAX_IDLE must be positive, got %s", c.MaxIdle)
	}
	if c.BuildTimeout <= 0 {
		return fmt.Errorf("SUGGEST_BUILD_TIMEOUT must be positive, got %s", c.BuildTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("SUGGEST_RATE_LIMIT must not be negative, got %v", c.RateLimit)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.Tracing.SampleRate)
	}
	return nil
}
