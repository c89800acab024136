// Package collectors feeds metrics from the event bus.
package collectors

import (
	"sync"

	"github.com/smazurov/kbdlight/internal/events"
	"github.com/smazurov/kbdlight/internal/metrics"
)

// EventCollector mirrors bus events into the keyboard metrics.
type EventCollector struct {
	bus     *events.Bus
	metrics *metrics.Keyboard

	mu     sync.Mutex
	unsubs []func()
}

// NewEventCollector creates a stopped collector.
func NewEventCollector(bus *events.Bus, m *metrics.Keyboard) *EventCollector {
	return &EventCollector{bus: bus, metrics: m}
}

// Start subscribes to the bus.
func (c *EventCollector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubs != nil {
		return
	}

	c.unsubs = []func(){
		c.bus.Subscribe(func(e events.DriverStateChangedEvent) {
			c.metrics.SetState(e.State)
			c.metrics.CountChange(e.Source)
		}),
		c.bus.Subscribe(func(e events.ScreenPowerChangedEvent) {
			c.metrics.SetScreenOn(!e.Off)
		}),
		c.bus.Subscribe(func(e events.SystemResumedEvent) {
			c.metrics.CountResume(e.Source)
		}),
		c.bus.Subscribe(func(e events.PermissionDeniedEvent) {
			c.metrics.CountPermissionDenied(e.Role)
		}),
	}
}

// Stop unsubscribes from the bus.
func (c *EventCollector) Stop() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
