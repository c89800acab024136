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

// Publish publishes an event to all subscribers. Subscribers run on the
// dispatcher's goroutines, never on the caller's.
// Usage: bus.Publish(DriverStateChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case DriverStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ScreenPowerChangedEvent:
		event.Publish(b.dispatcher, e)
	case SystemResumedEvent:
		event.Publish(b.dispatcher, e)
	case PermissionDeniedEvent:
		event.Publish(b.dispatcher, e)
	case DriverHotplugEvent:
		event.Publish(b.dispatcher, e)
	case SettingsChangedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type selects the events it receives. Unknown handler types get
// a no-op unsubscribe.
// Usage: unsub := bus.Subscribe(func(e SystemResumedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DriverStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ScreenPowerChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SystemResumedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PermissionDeniedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DriverHotplugEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingsChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
