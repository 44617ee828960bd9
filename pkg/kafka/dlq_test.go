package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDLQ(w messageWriter) *DLQProducer {
	failedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &DLQProducer{writer: w, logger: testLogger(), now: func() time.Time { return failedAt }}
}

func TestDLQTopic(t *testing.T) {
	assert.Equal(t, "ocs.index.updated.dlq", DLQTopic(TopicIndexUpdated))
	assert.Equal(t, "ocs.search.config-changed.dlq", DLQTopic(TopicConfigChanged))
}

func TestDLQProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	original := kafka.Message{
		Topic:     TopicIndexUpdated,
		Partition: 2,
		Offset:    42,
		Key:       []byte("products"),
		Value:     []byte(`{"event_id":"e"}`),
		Headers:   []kafka.Header{{Key: "event_type", Value: []byte(EventTypeIndexUpdated)}},
	}

	require.NoError(t, newTestDLQ(w).Publish(context.Background(), original, errBoom, "suggest-service"))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ocs.index.updated.dlq", msg.Topic)
	assert.Equal(t, original.Key, msg.Key)
	assert.Equal(t, original.Value, msg.Value)
	assert.Len(t, original.Headers, 1, "original headers must not be modified")

	c := NewHeaderCarrier(&msg)
	assert.Equal(t, EventTypeIndexUpdated, c.Get("event_type"))
	assert.Equal(t, TopicIndexUpdated, c.Get(HeaderDLQTopic))
	assert.Equal(t, "2", c.Get(HeaderDLQPartition))
	assert.Equal(t, "42", c.Get(HeaderDLQOffset))
	assert.Equal(t, "suggest-service", c.Get(HeaderDLQGroup))
	assert.Equal(t, "boom", c.Get(HeaderDLQError))
	assert.Equal(t, "2026-03-14T09:30:00Z", c.Get(HeaderDLQFailedAt))
}

func TestDLQProducer_Publish_TruncatesLongErrors(t *testing.T) {
	w := &fakeWriter{}
	cause := errors.New(strings.Repeat("x", 5000))

	require.NoError(t, newTestDLQ(w).Publish(context.Background(), kafka.Message{Topic: TopicIndexUpdated}, cause, "g"))
	c := NewHeaderCarrier(&w.msgs[0])
	assert.Len(t, c.Get(HeaderDLQError), maxDLQErrorLen)
}

func TestDLQProducer_Publish_WriteError(t *testing.T) {
	err := newTestDLQ(&fakeWriter{err: errBoom}).Publish(context.Background(), kafka.Message{Topic: "t", Offset: 7}, nil, "g")
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "t@7 to t.dlq")
}
