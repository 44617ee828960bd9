package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration. A REDIS_URL such as
// redis://:secret@cache:6379/2 takes precedence over the separate fields.
type RedisConfig struct {
	URL         string        `env:"REDIS_URL"`
	Host        string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port        int           `env:"REDIS_PORT" envDefault:"6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize    int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	ReadTimeout time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
}

// Addr returns host:port of the configured server.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Options converts the config to go-redis options.
func (c RedisConfig) Options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		if c.PoolSize > 0 {
			opts.PoolSize = c.PoolSize
		}
		if c.ReadTimeout > 0 {
			opts.ReadTimeout = c.ReadTimeout
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:        c.Addr(),
		Password:    c.Password,
		DB:          c.DB,
		PoolSize:    c.PoolSize,
		ReadTimeout: c.ReadTimeout,
	}, nil
}

// NewRedisClient creates a traced Redis client and pings it, retrying
// while the server comes up.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	client.AddHook(RedisTracingHook{})

	err = startupRetry.run(ctx, "connect to redis", logger, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RegisterRedisPoolMetrics exports the connection pool counters of client
// on reg, labelled with service.
func RegisterRedisPoolMetrics(reg prometheus.Registerer, client *redis.Client, service string) error {
	labels := prometheus.Labels{"service": service}
	opts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{Namespace: "ocs", Subsystem: "redis_pool", Name: name, Help: help, ConstLabels: labels}
	}
	stat := func(pick func(*redis.PoolStats) float64) func() float64 {
		return func() float64 { return pick(client.PoolStats()) }
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(opts("total_connections", "Connections currently open."),
			stat(func(s *redis.PoolStats) float64 { return float64(s.TotalConns) })),
		prometheus.NewGaugeFunc(opts("idle_connections", "Connections currently idle."),
			stat(func(s *redis.PoolStats) float64 { return float64(s.IdleConns) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("hits_total", "Times a free connection was found in the pool.")),
			stat(func(s *redis.PoolStats) float64 { return float64(s.Hits) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("misses_total", "Times a new connection had to be dialed.")),
			stat(func(s *redis.PoolStats) float64 { return float64(s.Misses) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("timeouts_total", "Times waiting for a connection timed out.")),
			stat(func(s *redis.PoolStats) float64 { return float64(s.Timeouts) })),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register redis pool metrics: %w", err)
		}
	}
	return nil
}
