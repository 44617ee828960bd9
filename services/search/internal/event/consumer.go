// Package event applies configuration change events to the running search
// service.
package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/SrinivasareddyGatla/open-commerce-search/pkg/kafka"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

// SettingsLoader reads the persisted settings.
type SettingsLoader interface {
	Load(ctx context.Context) (*domain.Settings, error)
}

// SettingsTarget receives reloaded settings.
type SettingsTarget interface {
	Update(settings *domain.Settings)
}

// SearcherInvalidator drops cached searchers.
type SearcherInvalidator interface {
	Invalidate(tenant string)
	InvalidateAll()
}

// Consumer reloads the settings on config-changed events and drops the
// searchers built from the old configuration.
type Consumer struct {
	store     SettingsLoader
	resolver  SettingsTarget
	searchers SearcherInvalidator
	logger    *slog.Logger
}

// NewConsumer creates a new config-changed consumer.
func NewConsumer(store SettingsLoader, resolver SettingsTarget, searchers SearcherInvalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		store:     store,
		resolver:  resolver,
		searchers: searchers,
		logger:    logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case pkgkafka.EventTypeConfigChanged:
		return c.handleConfigChanged(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleConfigChanged(ctx context.Context, event *pkgkafka.Event) error {
	data, err := pkgkafka.Payload[pkgkafka.ConfigChanged](event)
	if err != nil {
		return err
	}

	settings, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload settings: %w", err)
	}
	c.Apply(settings, data.Tenant)

	c.logger.InfoContext(ctx, "search configuration reloaded",
		slog.String("tenant", data.Tenant),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// Apply installs settings and drops the searchers of tenant, or of every
// tenant when tenant is empty.
func (c *Consumer) Apply(settings *domain.Settings, tenant string) {
	c.resolver.Update(settings)
	if tenant == "" {
		c.searchers.InvalidateAll()
		return
	}
	c.searchers.Invalidate(tenant)
}
