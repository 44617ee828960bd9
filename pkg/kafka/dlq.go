package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQSuffix is appended to a topic name to form its dead-letter topic.
const DLQSuffix = ".dlq"

// Headers added to dead-lettered messages. The original headers are kept.
const (
	HeaderDLQTopic     = "dlq_topic"
	HeaderDLQPartition = "dlq_partition"
	HeaderDLQOffset    = "dlq_offset"
	HeaderDLQGroup     = "dlq_group"
	HeaderDLQError     = "dlq_error"
	HeaderDLQFailedAt  = "dlq_failed_at"
)

// maxDLQErrorLen caps the error header; handler errors may embed whole
// Elasticsearch responses.
const maxDLQErrorLen = 1024

// DeadLetterPublisher receives messages whose handler kept failing.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, original kafka.Message, lastErr error, consumerGroup string) error
}

// DLQTopic returns the dead-letter topic of topic.
func DLQTopic(topic string) string {
	return topic + DLQSuffix
}

// DLQProducer parks failed messages on "<topic>.dlq" so they can be
// inspected and replayed with ocsctl.
type DLQProducer struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewDLQProducer creates a DLQ producer. Every message is written
// synchronously and acknowledged by all replicas.
func NewDLQProducer(brokers []string, logger *slog.Logger) *DLQProducer {
	return &DLQProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchSize:              1,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Publish copies original to its dead-letter topic with the same key and
// value. Where it came from and why it failed travel in the headers.
func (d *DLQProducer) Publish(ctx context.Context, original kafka.Message, lastErr error, consumerGroup string) error {
	topic := DLQTopic(original.Topic)
	msg := kafka.Message{
		Topic:   topic,
		Key:     original.Key,
		Value:   original.Value,
		Headers: append(append([]kafka.Header(nil), original.Headers...), d.failureHeaders(original, lastErr, consumerGroup)...),
	}

	start := time.Now()
	err := d.writer.WriteMessages(ctx, msg)
	observePublished(topic, start, err)
	if err != nil {
		return fmt.Errorf("dead-letter %s@%d to %s: %w", original.Topic, original.Offset, topic, err)
	}

	d.logger.WarnContext(ctx, "event dead-lettered",
		slog.String("topic", original.Topic),
		slog.Int("partition", original.Partition),
		slog.Int64("offset", original.Offset),
		slog.String("dlq_topic", topic),
		slog.String("group", consumerGroup),
	)
	return nil
}

func (d *DLQProducer) failureHeaders(original kafka.Message, lastErr error, group string) []kafka.Header {
	h := []kafka.Header{
		{Key: HeaderDLQTopic, Value: []byte(original.Topic)},
		{Key: HeaderDLQPartition, Value: []byte(strconv.Itoa(original.Partition))},
		{Key: HeaderDLQOffset, Value: []byte(strconv.FormatInt(original.Offset, 10))},
		{Key: HeaderDLQGroup, Value: []byte(group)},
		{Key: HeaderDLQFailedAt, Value: []byte(d.now().UTC().Format(time.RFC3339))},
	}
	if lastErr != nil {
		msg := lastErr.Error()
		if len(msg) > maxDLQErrorLen {
			msg = msg[:maxDLQErrorLen]
		}
		h = append(h, kafka.Header{Key: HeaderDLQError, Value: []byte(msg)})
	}
	return h
}

// Close flushes and closes the writer.
func (d *DLQProducer) Close() error {
	return d.writer.Close()
}
