package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
)

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"b1:9092", "b2:9092"})
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.False(t, cfg.Async)
}

func TestNewProducer_DoesNotConnect(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), nil)
	require.NotNil(t, p)
	assert.Equal(t, []string{"localhost:19092"}, p.brokers)
	assert.NoError(t, p.Close())
}

func TestProducer_Publish_WritesKeyAndHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: testLogger()}

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	e, err := NewEvent(ctx, EventTypeIndexUpdated, "products", "search-service", IndexUpdated{Index: "p-1", Alias: "products"})
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, TopicIndexUpdated, e))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, TopicIndexUpdated, msg.Topic)
	assert.Equal(t, "products", string(msg.Key))
	c := NewHeaderCarrier(&msg)
	assert.Equal(t, EventTypeIndexUpdated, c.Get("event_type"))
	assert.Equal(t, "corr-1", c.Get("correlation_id"))
	assert.Equal(t, "search-service", c.Get("source"))
	assert.Empty(t, c.Get("tenant"))

	decoded, err := ParseEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, decoded.EventID)
}

func TestProducer_Publish_WrapsWriteError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errBoom}, logger: testLogger()}
	e, err := NewEvent(context.Background(), "x", "k", "s", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "ocs.test", e)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "publish x to ocs.test")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	assert.ErrorIs(t, err, errNoBrokers)
}

func TestPingBrokers_ReportsEveryBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := PingBrokers(ctx, []string{"127.0.0.1:1", "127.0.0.1:2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Contains(t, err.Error(), "127.0.0.1:2")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "t", &Event{}))
}
