package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
)

// SchemaVersion is the envelope version written by NewEvent.
const SchemaVersion = 1

// ErrMalformedEvent is returned by ParseEvent for payloads that are not an
// event envelope.
var ErrMalformedEvent = errors.New("malformed event")

// Event is the envelope carried by every message on the ocs topics.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Key           string          `json:"key"`
	Tenant        string          `json:"tenant,omitempty"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope. key is the partition key. The
// correlation id and tenant of ctx, if any, are copied onto the event so
// consumers can log with the same values as the request that caused it.
func NewEvent(ctx context.Context, eventType, key, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Key:           key,
		Tenant:        logger.TenantFromContext(ctx),
		Version:       SchemaVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		Data:          raw,
	}, nil
}

// Encode returns the wire form of e.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Context returns ctx carrying the correlation id and tenant of e.
func (e *Event) Context(ctx context.Context) context.Context {
	if e.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, e.CorrelationID)
	}
	if e.Tenant != "" {
		ctx = logger.WithTenant(ctx, e.Tenant)
	}
	return ctx
}

// ParseEvent decodes a message value. Envelopes without id or type are
// rejected with ErrMalformedEvent.
func ParseEvent(value []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(value, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if e.EventID == "" || e.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_id or event_type", ErrMalformedEvent)
	}
	return &e, nil
}

// Payload decodes the data of e into a T.
func Payload[T any](e *Event) (T, error) {
	var v T
	if len(e.Data) == 0 {
		return v, fmt.Errorf("%s event %s has no data", e.EventType, e.EventID)
	}
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return v, nil
}
