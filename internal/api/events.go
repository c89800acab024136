package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/kbdlight/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	if s.eventBus == nil {
		s.logger.Debug("No event bus, skipping SSE route")
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of keyboard state, screen power, resume, hotplug and settings events. The current keyboard state is sent first.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"driver-state":      events.DriverStateChangedEvent{},
		"screen-power":      events.ScreenPowerChangedEvent{},
		"system-resumed":    events.SystemResumedEvent{},
		"permission-denied": events.PermissionDeniedEvent{},
		"driver-hotplug":    events.DriverHotplugEvent{},
		"settings-changed":  events.SettingsChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.DriverStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ScreenPowerChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SystemResumedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PermissionDeniedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DriverHotplugEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SettingsChangedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		state, err := s.options.Keyboard.State()
		if err != nil {
			s.logger.Debug("Partial keyboard state for SSE snapshot", "error", err)
		}
		if err := send.Data(events.DriverStateChangedEvent{
			State:     state,
			Source:    events.SourceSnapshot,
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
