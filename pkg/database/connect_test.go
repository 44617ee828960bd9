package database

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5433, User: "ocs", Password: "p@ss/word", DBName: "ocs", SSLMode: "require"}

	dsn := cfg.DSN()
	assert.True(t, strings.HasPrefix(dsn, "postgres://ocs:"))
	assert.Contains(t, dsn, "@db:5433/ocs?sslmode=require")
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestNewRedisClient_PingsAndServesCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := strings.Cut(mr.Addr(), ":")
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	cfg := RedisConfig{Host: host, Port: p, PoolSize: 2, ReadTimeout: time.Second}
	assert.Equal(t, mr.Addr(), cfg.Addr())

	client, err := NewRedisClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "suggest:de:built_at", "1760000000", 0).Err())
	got, err := mr.Get("suggest:de:built_at")
	require.NoError(t, err)
	assert.Equal(t, "1760000000", got)
}

func TestRedisConfig_Options(t *testing.T) {
	opts, err := RedisConfig{Host: "cache", Port: 6380, DB: 3, PoolSize: 4}.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)

	opts, err = RedisConfig{URL: "redis://:secret@suggest-cache:6379/2", Host: "ignored", PoolSize: 7}.Options()
	require.NoError(t, err)
	assert.Equal(t, "suggest-cache:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	_, err = RedisConfig{URL: "http://cache"}.Options()
	assert.ErrorContains(t, err, "parse REDIS_URL")
}

func TestRegisterRedisPoolMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterRedisPoolMetrics(reg, client, "suggest"))
	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	err = RegisterRedisPoolMetrics(reg, client, "suggest")
	assert.ErrorContains(t, err, "register redis pool metrics")
}
