package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ReplayConfig selects the dead-letter topic to drain.
type ReplayConfig struct {
	Brokers []string
	// Topic is the original topic; its "<topic>.dlq" is read.
	Topic   string
	GroupID string
	// Limit stops after that many messages. Zero replays everything.
	Limit int
	// Idle is how long to wait for the next message before the topic is
	// considered drained.
	Idle time.Duration
}

// Replayer moves dead-lettered events back onto the topic they failed on,
// without the dlq_* headers. Offsets are committed in the replay group, so a
// second run only sees messages that failed again.
type Replayer struct {
	reader messageReader
	writer messageWriter
	limit  int
	idle   time.Duration
	logger *slog.Logger
}

// NewReplayer creates a replayer for cfg.Topic.
func NewReplayer(cfg ReplayConfig, logger *slog.Logger) *Replayer {
	if cfg.GroupID == "" {
		cfg.GroupID = "ocsctl-dlq-replay"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       DLQTopic(cfg.Topic),
		StartOffset: kafka.FirstOffset,
	})
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newReplayer(reader, writer, cfg, logger)
}

func newReplayer(r messageReader, w messageWriter, cfg ReplayConfig, logger *slog.Logger) *Replayer {
	if cfg.Idle <= 0 {
		cfg.Idle = 5 * time.Second
	}
	return &Replayer{reader: r, writer: w, limit: cfg.Limit, idle: cfg.Idle, logger: logger}
}

// Run replays until the dead-letter topic is drained, the limit is reached
// or ctx is done. It returns how many messages were moved.
func (r *Replayer) Run(ctx context.Context) (int, error) {
	replayed := 0
	for r.limit == 0 || replayed < r.limit {
		fetchCtx, cancel := context.WithTimeout(ctx, r.idle)
		msg, err := r.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return replayed, nil
			}
			return replayed, fmt.Errorf("fetch dead letter: %w", err)
		}

		out := kafka.Message{
			Topic:   replayTopic(msg),
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: withoutDLQHeaders(msg.Headers),
		}
		if err := r.writer.WriteMessages(ctx, out); err != nil {
			return replayed, fmt.Errorf("replay offset %d to %s: %w", msg.Offset, out.Topic, err)
		}
		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			return replayed, fmt.Errorf("commit dead letter offset %d: %w", msg.Offset, err)
		}
		replayed++
		r.logger.DebugContext(ctx, "dead letter replayed",
			slog.String("topic", out.Topic),
			slog.Int64("dlq_offset", msg.Offset),
		)
	}
	return replayed, nil
}

// Close closes the reader and the writer.
func (r *Replayer) Close() error {
	return errors.Join(r.reader.Close(), r.writer.Close())
}

func replayTopic(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == HeaderDLQTopic && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return strings.TrimSuffix(msg.Topic, DLQSuffix)
}

func withoutDLQHeaders(headers []kafka.Header) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers))
	for _, h := range headers {
		if !strings.HasPrefix(h.Key, "dlq_") {
			out = append(out, h)
		}
	}
	return out
}
