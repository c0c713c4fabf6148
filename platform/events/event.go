// Package events is the in-process bus that carries committed lifecycle
// changes to their subscribers. Payload types live in internal/events.
package events

import (
	"context"
	"time"
)

// Event is a committed state change. EventName is dotted, module first, for
// example "orders.status.changed" or "inventory.low_stock".
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the commit timestamp shared by every payload.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// Handler reacts to one event, for example by enqueueing a low-stock alert.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe to the bus.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events by name. Services publish from db.AfterCommit callbacks,
// so subscribers never see a change that was rolled back.
type Bus interface {
	// Publish hands event to its subscribers without waiting for them.
	Publish(ctx context.Context, event Event)
	// PublishSync runs every subscriber and joins their errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
