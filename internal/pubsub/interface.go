package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event types carried on scope topics.
const (
	EventMessageCreated = "message_created"
	EventMessageUpdated = "message_updated"
)

// ErrClosed is returned when publishing or subscribing on a closed bus.
var ErrClosed = errors.New("pubsub: closed")

// Event represents a message published to the event bus.
type Event struct {
	Type      string          `json:"type"`
	ScopeID   string          `json:"scope_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType, scopeID string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		ScopeID:   scopeID,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

// UnmarshalPayload unmarshals the event payload into the given struct.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Subscription is one subscriber's handle on a topic. Events arrive on
// Events() in the order they were published to the topic. Close releases
// the subscription synchronously: once it returns no further events are
// delivered and the events channel is closed.
type Subscription interface {
	Events() <-chan *Event
	Close() error
}

// Publisher publishes events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
}

// Subscriber subscribes to events from the event bus. Each call returns
// an independent subscription; delivery to one subscriber never blocks
// delivery to another.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// PubSub combines Publisher and Subscriber interfaces.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}
