package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/kbdlight/internal/api/models"
	"github.com/smazurov/kbdlight/internal/events"
	"github.com/smazurov/kbdlight/internal/settings"
)

func (s *Server) registerSettingsRoutes() {
	store := s.options.Settings

	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Get Settings",
		Description: "Get the daemon preferences and the saved keyboard state",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.SettingsResponse, error) {
		return &models.SettingsResponse{Body: store.Get()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "patch-settings",
		Method:      http.MethodPatch,
		Path:        "/api/settings",
		Summary:     "Update Settings",
		Description: "Change daemon preferences. Omitted fields are left unchanged.",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(_ context.Context, input *models.SettingsPatchRequest) (*models.SettingsResponse, error) {
		patch := input.Body
		next, err := store.Update(func(st *settings.Settings) {
			if patch.RestoreOnStart != nil {
				st.RestoreOnStart = *patch.RestoreOnStart
			}
			if patch.RestoreOnResume != nil {
				st.RestoreOnResume = *patch.RestoreOnResume
			}
			if patch.LEDOffOnScreensaver != nil {
				st.LEDOffOnScreensaver = *patch.LEDOffOnScreensaver
			}
		})
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to save settings", err)
		}

		if s.eventBus != nil {
			s.eventBus.Publish(SettingsChanged(next, false))
		}
		return &models.SettingsResponse{Body: next}, nil
	})
}

// SettingsChanged builds the event announcing st.
func SettingsChanged(st settings.Settings, reloaded bool) events.SettingsChangedEvent {
	return events.SettingsChangedEvent{
		RestoreOnStart:      st.RestoreOnStart,
		RestoreOnResume:     st.RestoreOnResume,
		LEDOffOnScreensaver: st.LEDOffOnScreensaver,
		Reloaded:            reloaded,
		Timestamp:           time.Now().Format(time.RFC3339),
	}
}
