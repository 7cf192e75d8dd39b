package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers. A nil bus drops it.
// Usage: bus.Publish(StreamCreatedEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case StreamCreatedEvent:
		event.Publish(b.dispatcher, e)
	case StreamUpdatedEvent:
		event.Publish(b.dispatcher, e)
	case StreamDeletedEvent:
		event.Publish(b.dispatcher, e)
	case StreamsImportedEvent:
		event.Publish(b.dispatcher, e)
	case RegistryChangedEvent:
		event.Publish(b.dispatcher, e)
	case EngineStatusEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type of its argument and returns
// an unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e StreamDeletedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StreamCreatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamUpdatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamDeletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamsImportedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RegistryChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EngineStatusEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
