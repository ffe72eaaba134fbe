package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/acp-registry/apiserver/types"
)

// Attribute keys set on every published event.
const (
	AttrEventID   = "event_id"
	AttrEventType = "event_type"
	AttrUserID    = "user_id"
)

// Message is a broker-agnostic payload with its attributes.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a delivered message. Returning an error asks the broker
// to redeliver it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker.
type Backend interface {
	Publish(ctx context.Context, channel string, msg Message) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ publishes and consumes registry events over a Backend.
type MQ struct {
	backend Backend
}

// New constructs an MQ for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// PublishEvent sends event as JSON on channel. The returned id is the one the
// broker assigned to the message.
func (m *MQ) PublishEvent(ctx context.Context, channel string, event types.Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return m.backend.Publish(ctx, channel, Message{
		ID:         event.ID,
		Data:       data,
		Attributes: EventAttributes(event),
	})
}

// EventAttributes returns the attributes published alongside event.
func EventAttributes(event types.Event) map[string]string {
	return map[string]string{
		AttrEventID:   event.ID,
		AttrEventType: event.Type,
		AttrUserID:    strconv.FormatInt(event.UserID, 10),
	}
}

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event types.Event) error

// SubscribeEvents consumes events from channel until ctx is done. Messages
// that do not decode are acknowledged and reported to skip, which may be nil.
func (m *MQ) SubscribeEvents(ctx context.Context, channel string, handle EventHandler, skip func(Message, error)) error {
	return m.backend.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeEvent(msg)
		if err != nil {
			if skip != nil {
				skip(msg, err)
			}
			return nil
		}
		return handle(ctx, event)
	})
}

// DecodeEvent parses a message body. The event type falls back to the
// message attributes when the body omits it.
func DecodeEvent(msg Message) (types.Event, error) {
	var event types.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	if event.Type == "" {
		event.Type = msg.Attributes[AttrEventType]
	}
	if event.Type == "" {
		return types.Event{}, fmt.Errorf("decode event %s: missing type", msg.ID)
	}
	if event.ID == "" {
		event.ID = msg.ID
	}
	return event, nil
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
