package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
)

const keyPrefix = "ocs:suggest:"

// RedisSource keeps the records of an index in one hash, keyed by label.
type RedisSource struct {
	client redis.UniversalClient
	logger *slog.Logger
}

var _ Source = (*RedisSource)(nil)

// NewRedisSource creates a Redis-backed source.
func NewRedisSource(client redis.UniversalClient, logger *slog.Logger) *RedisSource {
	return &RedisSource{client: client, logger: logger}
}

func key(index string) string {
	return keyPrefix + index
}

// Load implements Source. Records are returned sorted by label.
func (s *RedisSource) Load(ctx context.Context, index string) ([]domain.Record, error) {
	fields, err := s.client.HGetAll(ctx, key(index)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall suggest records: %w", err)
	}

	records := make([]domain.Record, 0, len(fields))
	for label, raw := range fields {
		var r domain.Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			s.logger.Warn("skipping malformed suggest record",
				slog.String("index", index),
				slog.String("label", label),
				slog.String("error", err.Error()),
			)
			continue
		}
		if r.Label == "" {
			r.Label = label
		}
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b domain.Record) int {
		return strings.Compare(a.Label, b.Label)
	})
	return valid(index, records, s.logger), nil
}

// Save replaces the records of index.
func (s *RedisSource) Save(ctx context.Context, index string, records []domain.Record) error {
	values := make([]any, 0, 2*len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal suggest record: %w", err)
		}
		values = append(values, r.Label, string(data))
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key(index))
		if len(values) > 0 {
			p.HSet(ctx, key(index), values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save suggest records: %w", err)
	}
	return nil
}

// Indexes lists the indexes that have records.
func (s *RedisSource) Indexes(ctx context.Context) ([]string, error) {
	var names []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan suggest indexes: %w", err)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}
