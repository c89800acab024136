package keyboard

import (
	"errors"
	"fmt"
	"strconv"
)

// Controller gives typed access to a Driver. It performs no locking and
// no change suppression; Service layers those on top.
type Controller struct {
	driver Driver
}

// NewController wraps d.
func NewController(d Driver) *Controller {
	return &Controller{driver: d}
}

// Driver returns the wrapped driver.
func (c *Controller) Driver() Driver {
	return c.driver
}

// State reports whether the backlight is on.
func (c *Controller) State() (bool, error) {
	v, err := c.readInt(RoleState)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (c *Controller) SetState(on bool) error {
	return c.driver.Write(RoleState, boolAttr(on))
}

func (c *Controller) Brightness() (int, error) {
	return c.readInt(RoleBrightness)
}

// SetBrightness clamps value to 0..MaxBrightness before writing.
func (c *Controller) SetBrightness(value int) error {
	return c.driver.Write(RoleBrightness, strconv.Itoa(clampBrightness(value)))
}

func (c *Controller) Mode() (Mode, error) {
	v, err := c.readInt(RoleMode)
	if err != nil {
		return 0, err
	}
	m := Mode(v)
	if !m.valid() {
		return 0, fmt.Errorf("%w: driver reported mode %d", ErrInvalidValue, v)
	}
	return m, nil
}

func (c *Controller) SetMode(m Mode) error {
	if !m.valid() {
		return fmt.Errorf("%w: %v", ErrInvalidValue, m)
	}
	return c.driver.Write(RoleMode, strconv.Itoa(int(m)))
}

func (c *Controller) Color(p Panel) (RGB, error) {
	raw, err := c.driver.Read(p.Role())
	if err != nil {
		return RGB{}, err
	}
	return ParseColor(raw)
}

func (c *Controller) SetColor(p Panel, color RGB) error {
	return c.driver.Write(p.Role(), color.String())
}

// ReadState reads every supported role. Colors are reported with a 0x prefix
// even when the driver prints bare hex. On partial failure the readable roles
// are still returned alongside the joined errors.
func (c *Controller) ReadState() (State, error) {
	state := make(State, len(roleNames))
	var errs []error
	for _, role := range Roles() {
		if !c.driver.Supports(role) {
			continue
		}
		v, err := c.driver.Read(role)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if role.isColor() {
			v = withHexPrefix(v)
		}
		state[role.String()] = v
	}
	return state, errors.Join(errs...)
}

// ApplyState writes the roles present in state in apply order. Every value is
// validated first; nothing is written if any key or value is invalid. Write
// failures do not stop the remaining roles and are returned joined.
func (c *Controller) ApplyState(state State) error {
	normalized, err := Normalize(state)
	if err != nil {
		return err
	}

	var errs []error
	for _, role := range Roles() {
		value, ok := normalized[role.String()]
		if !ok {
			continue
		}
		if err := c.driver.Write(role, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) readInt(role Role) (int, error) {
	raw, err := c.driver.Read(role)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s reads %q", ErrInvalidValue, role, raw)
	}
	return v, nil
}

func withHexPrefix(v string) string {
	if len(v) >= 2 && v[0] == '0' && (v[1] == 'x' || v[1] == 'X') {
		return v
	}
	return "0x" + v
}
