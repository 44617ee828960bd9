package event

import (
	"context"
	"log/slog"

	pkgkafka "github.com/SrinivasareddyGatla/open-commerce-search/pkg/kafka"
)

// SuggesterDestroyer tears down the suggester of an index.
type SuggesterDestroyer interface {
	Destroy(index string) bool
}

// Consumer drops suggesters whose index was rebuilt. The next request
// builds a fresh one from the new data.
type Consumer struct {
	suggesters SuggesterDestroyer
	logger     *slog.Logger
}

// NewConsumer creates a new index-updated consumer.
func NewConsumer(suggesters SuggesterDestroyer, logger *slog.Logger) *Consumer {
	return &Consumer{suggesters: suggesters, logger: logger}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case pkgkafka.EventTypeIndexUpdated:
		return c.handleIndexUpdated(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleIndexUpdated(ctx context.Context, event *pkgkafka.Event) error {
	data, err := pkgkafka.Payload[pkgkafka.IndexUpdated](event)
	if err != nil {
		return err
	}

	name := data.Alias
	if name == "" {
		name = data.Index
	}
	if name == "" {
		c.logger.WarnContext(ctx, "index-updated event without index name",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	destroyed := c.suggesters.Destroy(name)
	c.logger.InfoContext(ctx, "index updated",
		slog.String("index", name),
		slog.Bool("suggester_destroyed", destroyed),
		slog.String("event_id", event.EventID),
	)
	return nil
}
