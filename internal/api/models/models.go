// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/kbdlight/internal/settings"
	"github.com/smazurov/kbdlight/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Driver  string `json:"driver" example:"/sys/devices/platform/tuxedo_keyboard" doc:"Driver root, empty for the in-memory driver"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionResponse struct {
	Body version.Info
}

// Keyboard models

// KeyboardColors are the three panel colors as 0xRRGGBB.
type KeyboardColors struct {
	Left   string `json:"left,omitempty" example:"0xff0000" doc:"Left panel color"`
	Center string `json:"center,omitempty" example:"0x00ff00" doc:"Center panel color"`
	Right  string `json:"right,omitempty" example:"0x0000ff" doc:"Right panel color"`
}

// KeyboardData is the decoded driver state.
type KeyboardData struct {
	On         bool              `json:"on" example:"true" doc:"Backlight on"`
	Brightness int               `json:"brightness" example:"128" minimum:"0" maximum:"255" doc:"Brightness, 0 to 255"`
	Mode       string            `json:"mode" example:"custom" doc:"Animation mode name"`
	Colors     KeyboardColors    `json:"colors" doc:"Per-panel colors"`
	Raw        map[string]string `json:"raw" doc:"Attribute values as read from the driver, keyed by role name"`
}

type KeyboardResponse struct {
	Body KeyboardData
}

// KeyboardPatchData is a partial update. Omitted fields are left alone.
type KeyboardPatchData struct {
	On          *bool   `json:"on,omitempty" example:"true" doc:"Turn the backlight on or off"`
	Brightness  *int    `json:"brightness,omitempty" example:"200" doc:"Brightness, clamped to 0..255"`
	Mode        *string `json:"mode,omitempty" example:"breathe" doc:"Mode name or driver number"`
	ColorLeft   *string `json:"color_left,omitempty" example:"0xff0000" doc:"Left panel color, 0xRRGGBB or #RRGGBB"`
	ColorCenter *string `json:"color_center,omitempty" example:"0x00ff00" doc:"Center panel color"`
	ColorRight  *string `json:"color_right,omitempty" example:"0x0000ff" doc:"Right panel color"`
}

type KeyboardPatchRequest struct {
	Body KeyboardPatchData
}

type ModeInfo struct {
	Name   string `json:"name" example:"breathe" doc:"Mode name"`
	Number int    `json:"number" example:"1" doc:"Driver mode number"`
}

type ModesData struct {
	Modes []ModeInfo `json:"modes" doc:"Animation modes supported by the driver"`
}

type ModesResponse struct {
	Body ModesData
}

// Settings models

type SettingsResponse struct {
	Body settings.Settings
}

type SettingsPatchData struct {
	RestoreOnStart      *bool `json:"restore_on_start,omitempty" doc:"Apply the saved driver state when the daemon starts"`
	RestoreOnResume     *bool `json:"restore_on_resume,omitempty" doc:"Apply the saved driver state after resume from suspend"`
	LEDOffOnScreensaver *bool `json:"led_off_on_screensaver,omitempty" doc:"Turn the backlight off while the screen is powered down"`
}

type SettingsPatchRequest struct {
	Body SettingsPatchData
}
