package events

// Event type constants for kelindar/event.
const (
	TypeDriverStateChanged uint32 = iota + 1
	TypeScreenPowerChanged
	TypeSystemResumed
	TypePermissionDenied
	TypeDriverHotplug
	TypeSettingsChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Change sources carried by DriverStateChangedEvent.
const (
	SourceExternal = "external"
	SourceAPI      = "api"
	SourceRestore  = "restore"
	SourceScreen   = "screensaver"
	// SourceSnapshot marks the state sent to a client when it connects.
	SourceSnapshot = "snapshot"
)

// DriverStateChangedEvent carries the full keyboard state after a change.
type DriverStateChangedEvent struct {
	State     map[string]string `json:"state" doc:"Driver attribute values keyed by role name"`
	Source    string            `json:"source" example:"external" enum:"external,api,restore,screensaver,snapshot" doc:"What caused the change"`
	Paths     []string          `json:"paths,omitempty" doc:"Attribute files that changed, for external changes"`
	Timestamp string            `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DriverStateChangedEvent.
func (e DriverStateChangedEvent) Type() uint32 { return TypeDriverStateChanged }

// ScreenPowerChangedEvent is published when the aggregated panel power flips.
type ScreenPowerChangedEvent struct {
	Off       bool   `json:"off" doc:"True when every backlight device is powered down"`
	Device    string `json:"device,omitempty" example:"intel_backlight" doc:"Device whose change caused the flip"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ScreenPowerChangedEvent.
func (e ScreenPowerChangedEvent) Type() uint32 { return TypeScreenPowerChanged }

// SystemResumedEvent is published once per detected resume from suspend.
type SystemResumedEvent struct {
	Source    string `json:"source" example:"clock" enum:"clock,logind" doc:"Detector that noticed the resume"`
	Gap       string `json:"gap,omitempty" example:"42s" doc:"Observed wall-clock gap"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SystemResumedEvent.
func (e SystemResumedEvent) Type() uint32 { return TypeSystemResumed }

// PermissionDeniedEvent reports a driver write rejected by the kernel.
type PermissionDeniedEvent struct {
	Role      string `json:"role" example:"brightness" doc:"Attribute that could not be written"`
	Path      string `json:"path" example:"/sys/devices/platform/tuxedo_keyboard/brightness" doc:"Attribute file"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PermissionDeniedEvent.
func (e PermissionDeniedEvent) Type() uint32 { return TypePermissionDenied }

// DriverHotplugEvent reports the keyboard platform device appearing or going away.
type DriverHotplugEvent struct {
	Action    string `json:"action" example:"add" enum:"add,remove" doc:"Kernel uevent action"`
	DevPath   string `json:"devpath" example:"/devices/platform/tuxedo_keyboard" doc:"Kernel device path"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DriverHotplugEvent.
func (e DriverHotplugEvent) Type() uint32 { return TypeDriverHotplug }

// SettingsChangedEvent is published after the settings file was saved or reloaded.
type SettingsChangedEvent struct {
	RestoreOnStart      bool   `json:"restore_on_start"`
	RestoreOnResume     bool   `json:"restore_on_resume"`
	LEDOffOnScreensaver bool   `json:"led_off_on_screensaver"`
	Reloaded            bool   `json:"reloaded" doc:"True when the file was edited outside the daemon"`
	Timestamp           string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SettingsChangedEvent.
func (e SettingsChangedEvent) Type() uint32 { return TypeSettingsChanged }
