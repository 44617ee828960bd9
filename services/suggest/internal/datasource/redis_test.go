package datasource

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRedis(t *testing.T) (*RedisSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSource(client, discardLogger()), mr
}

func TestRedisSource_SaveAndLoad(t *testing.T) {
	src, mr := setupTestRedis(t)
	ctx := context.Background()

	records := []domain.Record{
		{Label: "shoes", Weight: 10, Tags: []string{"category"}},
		{Label: "nike", Weight: 90, Payload: map[string]string{"type": "brand"}},
	}
	require.NoError(t, src.Save(ctx, "products", records))
	assert.True(t, mr.Exists("ocs:suggest:products"))

	got, err := src.Load(ctx, "products")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "nike", got[0].Label)
	assert.Equal(t, int64(90), got[0].Weight)
	assert.Equal(t, "brand", got[0].Payload["type"])
	assert.Equal(t, "shoes", got[1].Label)
	assert.Equal(t, []string{"category"}, got[1].Tags)
}

func TestRedisSource_SaveReplaces(t *testing.T) {
	src, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, src.Save(ctx, "products", []domain.Record{{Label: "old", Weight: 1}}))
	require.NoError(t, src.Save(ctx, "products", []domain.Record{{Label: "new", Weight: 2}}))

	got, err := src.Load(ctx, "products")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Label)
}

func TestRedisSource_Load_UnknownIndex(t *testing.T) {
	src, _ := setupTestRedis(t)

	got, err := src.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisSource_Load_SkipsBadRecords(t *testing.T) {
	src, mr := setupTestRedis(t)

	mr.HSet("ocs:suggest:products",
		"good", `{"weight":5}`,
		"broken", `{not json`,
		"negative", `{"label":"negative","weight":-1}`,
	)

	got, err := src.Load(context.Background(), "products")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Label)
	assert.Equal(t, int64(5), got[0].Weight)
}

func TestRedisSource_Load_ConnectionError(t *testing.T) {
	src, mr := setupTestRedis(t)
	mr.Close()

	_, err := src.Load(context.Background(), "products")
	assert.Error(t, err)
}

func TestRedisSource_Indexes(t *testing.T) {
	src, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, src.Save(ctx, "products", []domain.Record{{Label: "a"}}))
	require.NoError(t, src.Save(ctx, "brands", []domain.Record{{Label: "b"}}))
	require.NoError(t, mr.Set("unrelated", "x"))

	names, err := src.Indexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"brands", "products"}, names)
}
