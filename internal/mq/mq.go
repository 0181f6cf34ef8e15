package mq

import (
	"context"
	"encoding/json"

	"github.com/notefeed/apiserver/types"
)

// CategoryEventsChannel is the broker channel carrying category
// create/update events to the notification delivery worker.
const CategoryEventsChannel = "category.events"

const attrEventID = "event_id"

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with typed helpers for the category event stream.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// PublishCategoryEvent sends one category event to the notification
// channel. The event ID rides along as a message attribute so consumers
// can dedupe before decoding.
func (m *MQ) PublishCategoryEvent(ctx context.Context, event types.CategoryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = m.backend.Publish(ctx, CategoryEventsChannel, data, map[string]string{
		attrEventID: event.EventID,
	})
	return err
}

// SubscribeCategoryEvents consumes category events until ctx is
// cancelled. A handler error nacks the message for redelivery; delivery
// is therefore at-least-once and handlers must be idempotent.
func (m *MQ) SubscribeCategoryEvents(ctx context.Context, handler func(ctx context.Context, event types.CategoryEvent) error) error {
	return m.backend.Subscribe(ctx, CategoryEventsChannel, func(ctx context.Context, msg Message) error {
		var event types.CategoryEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			// Malformed payloads are dropped, not retried.
			return nil
		}
		if event.EventID == "" {
			event.EventID = msg.Attributes[attrEventID]
		}
		return handler(ctx, event)
	})
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
