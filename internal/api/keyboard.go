package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/kbdlight/internal/api/models"
	"github.com/smazurov/kbdlight/internal/keyboard"
)

func (s *Server) registerKeyboardRoutes() {
	kbd := s.options.Keyboard

	huma.Register(s.api, huma.Operation{
		OperationID: "get-keyboard",
		Method:      http.MethodGet,
		Path:        "/api/keyboard",
		Summary:     "Get Keyboard State",
		Description: "Read every backlight attribute from the driver",
		Tags:        []string{"keyboard"},
		Security:    withAuth(),
		Errors:      []int{401, 403, 500},
	}, func(_ context.Context, _ *struct{}) (*models.KeyboardResponse, error) {
		state, err := kbd.State()
		if err != nil && len(state) == 0 {
			return nil, keyboardError("Failed to read keyboard state", err)
		}
		return &models.KeyboardResponse{Body: keyboardData(state)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "patch-keyboard",
		Method:      http.MethodPatch,
		Path:        "/api/keyboard",
		Summary:     "Update Keyboard State",
		Description: "Write the given attributes. Omitted fields are left unchanged; values equal to the current ones are not rewritten.",
		Tags:        []string{"keyboard"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 403, 422, 500},
	}, func(_ context.Context, input *models.KeyboardPatchRequest) (*models.KeyboardResponse, error) {
		patch := patchState(input.Body)
		if len(patch) == 0 {
			return nil, huma.Error400BadRequest("No attributes to update")
		}

		state, err := kbd.Apply(patch)
		if err != nil {
			return nil, keyboardError("Failed to update keyboard state", err)
		}
		return &models.KeyboardResponse{Body: keyboardData(state)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-keyboard-modes",
		Method:      http.MethodGet,
		Path:        "/api/keyboard/modes",
		Summary:     "List Modes",
		Description: "List the animation modes of the driver",
		Tags:        []string{"keyboard"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ModesResponse, error) {
		modes := keyboard.Modes()
		resp := &models.ModesResponse{}
		resp.Body.Modes = make([]models.ModeInfo, len(modes))
		for i, m := range modes {
			resp.Body.Modes[i] = models.ModeInfo{Name: m.String(), Number: int(m)}
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restore-keyboard",
		Method:      http.MethodPost,
		Path:        "/api/keyboard/restore",
		Summary:     "Restore Keyboard State",
		Description: "Apply the state saved in the settings file",
		Tags:        []string{"keyboard"},
		Security:    withAuth(),
		Errors:      []int{401, 403, 500},
	}, func(_ context.Context, _ *struct{}) (*models.KeyboardResponse, error) {
		state, err := kbd.Restore()
		if err != nil {
			return nil, keyboardError("Failed to restore keyboard state", err)
		}
		return &models.KeyboardResponse{Body: keyboardData(state)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "save-keyboard",
		Method:      http.MethodPost,
		Path:        "/api/keyboard/save",
		Summary:     "Save Keyboard State",
		Description: "Store the current driver state in the settings file",
		Tags:        []string{"keyboard"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(_ context.Context, _ *struct{}) (*models.KeyboardResponse, error) {
		state, err := kbd.Save()
		if err != nil {
			return nil, keyboardError("Failed to save keyboard state", err)
		}
		return &models.KeyboardResponse{Body: keyboardData(state)}, nil
	})
}

// keyboardError maps driver errors to HTTP statuses.
func keyboardError(msg string, err error) error {
	switch {
	case errors.Is(err, keyboard.ErrInvalidValue), errors.Is(err, keyboard.ErrUnknownRole):
		return huma.Error422UnprocessableEntity(msg, err)
	case errors.Is(err, keyboard.ErrPermission):
		return huma.Error403Forbidden(msg, err)
	case errors.Is(err, keyboard.ErrUnsupported):
		return huma.Error400BadRequest(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

func patchState(p models.KeyboardPatchData) keyboard.State {
	state := keyboard.State{}
	if p.On != nil {
		state[keyboard.RoleState.String()] = strconv.FormatBool(*p.On)
	}
	if p.Brightness != nil {
		state[keyboard.RoleBrightness.String()] = strconv.Itoa(*p.Brightness)
	}
	if p.Mode != nil {
		state[keyboard.RoleMode.String()] = *p.Mode
	}
	if p.ColorLeft != nil {
		state[keyboard.RoleColorLeft.String()] = *p.ColorLeft
	}
	if p.ColorCenter != nil {
		state[keyboard.RoleColorCenter.String()] = *p.ColorCenter
	}
	if p.ColorRight != nil {
		state[keyboard.RoleColorRight.String()] = *p.ColorRight
	}
	return state
}

// keyboardData decodes raw driver values. Values that do not parse keep
// their zero value; the raw map always carries what the driver returned.
func keyboardData(state keyboard.State) models.KeyboardData {
	data := models.KeyboardData{Raw: map[string]string(state)}
	if data.Raw == nil {
		data.Raw = map[string]string{}
	}

	if v, err := strconv.ParseBool(state[keyboard.RoleState.String()]); err == nil {
		data.On = v
	}
	if v, err := strconv.Atoi(state[keyboard.RoleBrightness.String()]); err == nil {
		data.Brightness = v
	}
	if m, err := keyboard.ParseMode(state[keyboard.RoleMode.String()]); err == nil {
		data.Mode = m.String()
	}
	data.Colors = models.KeyboardColors{
		Left:   state[keyboard.RoleColorLeft.String()],
		Center: state[keyboard.RoleColorCenter.String()],
		Right:  state[keyboard.RoleColorRight.String()],
	}
	return data
}
