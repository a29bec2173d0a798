package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every message on the admin topics uses.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Header says what an event is about. Type and Source are required.
type Header struct {
	Type          string
	AggregateID   string
	AggregateType string
	Source        string
	CorrelationID string
	Metadata      map[string]string
}

// ErrIncompleteHeader is returned by NewEvent for a header missing Type or Source.
var ErrIncompleteHeader = errors.New("kafka: event header needs type and source")

// NewEvent builds an event with a fresh id and the current UTC time. The
// header's metadata is copied.
func NewEvent(h Header, data any) (*Event, error) {
	if h.Type == "" || h.Source == "" {
		return nil, ErrIncompleteHeader
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", h.Type, err)
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     h.Type,
		AggregateID:   h.AggregateID,
		AggregateType: h.AggregateType,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        h.Source,
		CorrelationID: h.CorrelationID,
		Data:          payload,
		Metadata:      maps.Clone(h.Metadata),
	}, nil
}

// Key is the partition key. Events of one aggregate stay ordered.
func (e *Event) Key() []byte {
	if e.AggregateID == "" {
		return []byte(e.EventID)
	}
	return []byte(e.AggregateID)
}

// Marshal serializes the event to JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses an envelope read off the wire.
func DecodeEvent(b []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(b, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

// Decode unmarshals the payload into target.
func (e *Event) Decode(target any) error {
	return json.Unmarshal(e.Data, target)
}
