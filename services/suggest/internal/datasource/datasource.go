// Package datasource loads the suggest records of an index.
package datasource

import (
	"context"
	"log/slog"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/validator"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
)

// Source provides the records of an index. An unknown index yields no
// records and no error.
type Source interface {
	Load(ctx context.Context, index string) ([]domain.Record, error)
}

// valid drops records that fail validation.
func valid(index string, records []domain.Record, logger *slog.Logger) []domain.Record {
	out := records[:0]
	for _, r := range records {
		if err := validator.Validate(r); err != nil {
			logger.Warn("skipping invalid suggest record",
				slog.String("index", index),
				slog.String("label", r.Label),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, r)
	}
	return out
}
