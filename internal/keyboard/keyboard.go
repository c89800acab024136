// Package keyboard drives the Clevo/Tuxedo keyboard backlight through the
// platform driver's sysfs attributes and keeps API clients in sync with
// changes made behind the daemon's back.
package keyboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultRoot is where the tuxedo_keyboard module exposes its attributes.
const DefaultRoot = "/sys/devices/platform/tuxedo_keyboard"

var (
	// ErrPermission is matched by errors.Is when the kernel rejected an access.
	ErrPermission = errors.New("permission denied")
	// ErrUnknownRole is returned for attribute names outside the fixed role set.
	ErrUnknownRole = errors.New("unknown attribute role")
	// ErrInvalidValue is returned when a value does not fit the role.
	ErrInvalidValue = errors.New("invalid attribute value")
	// ErrUnsupported is returned for roles the driver does not expose.
	ErrUnsupported = errors.New("attribute not supported by driver")
)

// Role names one driver attribute.
type Role int

// Attribute roles in the order they are applied.
const (
	RoleState Role = iota
	RoleBrightness
	RoleMode
	RoleColorLeft
	RoleColorCenter
	RoleColorRight
)

var roleNames = [...]string{
	RoleState:       "state",
	RoleBrightness:  "brightness",
	RoleMode:        "mode",
	RoleColorLeft:   "color_left",
	RoleColorCenter: "color_center",
	RoleColorRight:  "color_right",
}

// Roles returns every role in apply order.
func Roles() []Role {
	return []Role{RoleState, RoleBrightness, RoleMode, RoleColorLeft, RoleColorCenter, RoleColorRight}
}

// String returns the role name, which is also the sysfs file name.
func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "Role(" + strconv.Itoa(int(r)) + ")"
	}
	return roleNames[r]
}

// ParseRole maps a role name back to its Role.
func ParseRole(name string) (Role, error) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

func (r Role) isColor() bool {
	return r == RoleColorLeft || r == RoleColorCenter || r == RoleColorRight
}

// Mode is the driver's animation mode.
type Mode int

// Animation modes as numbered by the driver.
const (
	ModeCustom Mode = iota
	ModeBreathe
	ModeCycle
	ModeDance
	ModeFlash
	ModeRandomColor
	ModeTempo
	ModeWave
)

var modeNames = [...]string{
	ModeCustom:      "custom",
	ModeBreathe:     "breathe",
	ModeCycle:       "cycle",
	ModeDance:       "dance",
	ModeFlash:       "flash",
	ModeRandomColor: "random_color",
	ModeTempo:       "tempo",
	ModeWave:        "wave",
}

// Modes returns every mode in driver order.
func Modes() []Mode {
	modes := make([]Mode, len(modeNames))
	for i := range modeNames {
		modes[i] = Mode(i)
	}
	return modes
}

func (m Mode) String() string {
	if !m.valid() {
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
	return modeNames[m]
}

func (m Mode) valid() bool {
	return m >= 0 && int(m) < len(modeNames)
}

// ParseMode accepts a mode name or its driver number.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if m := Mode(n); m.valid() {
			return m, nil
		}
		return 0, fmt.Errorf("%w: mode %d out of range", ErrInvalidValue, n)
	}
	for i, name := range modeNames {
		if strings.EqualFold(name, s) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: mode %q", ErrInvalidValue, s)
}

// Panel is one of the three keyboard color zones.
type Panel int

// Keyboard zones.
const (
	PanelLeft Panel = iota
	PanelCenter
	PanelRight
)

// Panels returns the zones left to right.
func Panels() []Panel {
	return []Panel{PanelLeft, PanelCenter, PanelRight}
}

// Role returns the color attribute backing the panel.
func (p Panel) Role() Role {
	switch p {
	case PanelCenter:
		return RoleColorCenter
	case PanelRight:
		return RoleColorRight
	default:
		return RoleColorLeft
	}
}

func (p Panel) String() string {
	switch p {
	case PanelLeft:
		return "left"
	case PanelCenter:
		return "center"
	case PanelRight:
		return "right"
	}
	return "Panel(" + strconv.Itoa(int(p)) + ")"
}

// RGB is a 24-bit zone color.
type RGB struct {
	R, G, B uint8
}

// ParseColor accepts "0xRRGGBB", "#RRGGBB" or bare hex digits.
func ParseColor(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), "#")
	if digits == "" || len(digits) > 6 {
		return RGB{}, fmt.Errorf("%w: color %q", ErrInvalidValue, s)
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: color %q", ErrInvalidValue, s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// String formats the color the way the driver accepts it.
func (c RGB) String() string {
	return fmt.Sprintf("0x%02x%02x%02x", c.R, c.G, c.B)
}

// State is a full or partial driver snapshot keyed by role name.
type State map[string]string

// Normalize validates every entry of s and returns the values in the form
// the driver is written with. All problems are reported, joined.
func Normalize(s State) (State, error) {
	out := make(State, len(s))
	var errs []error
	for name, raw := range s {
		role, err := ParseRole(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		value, err := normalize(role, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[name] = value
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// normalize validates value for role and returns the form written to the driver.
func normalize(role Role, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case role == RoleState:
		on, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: state %q", ErrInvalidValue, value)
		}
		return boolAttr(on), nil
	case role == RoleBrightness:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", fmt.Errorf("%w: brightness %q", ErrInvalidValue, value)
		}
		return strconv.Itoa(clampBrightness(n)), nil
	case role == RoleMode:
		m, err := ParseMode(value)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(m)), nil
	case role.isColor():
		c, err := ParseColor(value)
		if err != nil {
			return "", err
		}
		return c.String(), nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnknownRole, role)
}

// MaxBrightness is the driver's brightness ceiling.
const MaxBrightness = 255

func clampBrightness(n int) int {
	return max(0, min(n, MaxBrightness))
}

func boolAttr(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
