package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// malformedEventType labels messages that could not be decoded.
const malformedEventType = "malformed"

// Outcomes of handling or publishing one event.
const (
	outcomeHandled      = "handled"
	outcomeFailed       = "failed"
	outcomeDeadLettered = "dead_lettered"
	outcomePublished    = "published"
	outcomeError        = "error"
)

var (
	eventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocs",
			Subsystem: "events",
			Name:      "received_total",
			Help:      "Messages fetched from the broker",
		},
		[]string{"topic", "group"},
	)

	eventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocs",
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Consumed events by type and outcome (handled, failed, dead_lettered)",
		},
		[]string{"topic", "event_type", "outcome"},
	)

	eventsDuplicate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocs",
			Subsystem: "events",
			Name:      "duplicates_skipped_total",
			Help:      "Redelivered events skipped because their id was already processed",
		},
		[]string{"event_type"},
	)

	eventHandleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocs",
			Subsystem: "events",
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one event, retries included",
			Buckets:   []float64{.001, .005, .025, .1, .5, 1, 5, 30},
		},
		[]string{"topic", "event_type"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocs",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Published events by topic and outcome (published, error)",
		},
		[]string{"topic", "outcome"},
	)

	eventPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocs",
			Subsystem: "events",
			Name:      "publish_duration_seconds",
			Help:      "Time spent writing one event to the broker",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)

func observeConsumed(topic, eventType, outcome string) {
	eventsConsumed.WithLabelValues(topic, eventType, outcome).Inc()
}

func observePublished(topic string, start time.Time, err error) {
	eventPublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	outcome := outcomePublished
	if err != nil {
		outcome = outcomeError
	}
	eventsPublished.WithLabelValues(topic, outcome).Inc()
}
