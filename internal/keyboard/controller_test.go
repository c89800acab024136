package keyboard

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sysfsController(t *testing.T) (*Controller, string) {
	t.Helper()
	root := driverDir(t)
	d, err := NewSysfs(root)
	require.NoError(t, err)
	return NewController(d), root
}

func TestController_TypedAccessors(t *testing.T) {
	c, root := sysfsController(t)

	on, err := c.State()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, c.SetState(false))
	assert.Equal(t, "0\n", readAttr(t, filepath.Join(root, "state")))

	brightness, err := c.Brightness()
	require.NoError(t, err)
	assert.Equal(t, 100, brightness)

	require.NoError(t, c.SetMode(ModeTempo))
	mode, err := c.Mode()
	require.NoError(t, err)
	assert.Equal(t, ModeTempo, mode)
	assert.ErrorIs(t, c.SetMode(Mode(12)), ErrInvalidValue)

	color, err := c.Color(PanelCenter)
	require.NoError(t, err)
	assert.Equal(t, RGB{0, 0xff, 0}, color)

	require.NoError(t, c.SetColor(PanelRight, RGB{0x12, 0x34, 0x56}))
	assert.Equal(t, "0x123456\n", readAttr(t, filepath.Join(root, "color_right")))
}

func TestController_BrightnessClamped(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{-10, "0\n"},
		{0, "0\n"},
		{128, "128\n"},
		{255, "255\n"},
		{1000, "255\n"},
	}

	c, root := sysfsController(t)
	for _, tt := range tests {
		require.NoError(t, c.SetBrightness(tt.in))
		assert.Equal(t, tt.want, readAttr(t, filepath.Join(root, "brightness")), "SetBrightness(%d)", tt.in)
	}
}

func TestController_ModeOutOfRange(t *testing.T) {
	c, root := sysfsController(t)
	writeAttr(t, filepath.Join(root, "mode"), "9")

	_, err := c.Mode()
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestController_ReadStateAddsHexPrefix(t *testing.T) {
	c, _ := sysfsController(t)

	state, err := c.ReadState()
	require.NoError(t, err)

	assert.Equal(t, State{
		"state":        "1",
		"brightness":   "100",
		"mode":         "0",
		"color_left":   "0xff0000",
		"color_center": "0x00ff00",
		"color_right":  "0x0000ff",
	}, state)
}

// Saving the state, scribbling over it and applying the saved copy must
// bring every attribute back.
func TestController_SaveRestoreRoundTrip(t *testing.T) {
	c, _ := sysfsController(t)

	saved, err := c.ReadState()
	require.NoError(t, err)

	require.NoError(t, c.SetState(false))
	require.NoError(t, c.SetBrightness(3))
	require.NoError(t, c.SetMode(ModeWave))
	require.NoError(t, c.SetColor(PanelLeft, RGB{1, 2, 3}))

	require.NoError(t, c.ApplyState(saved))

	restored, err := c.ReadState()
	require.NoError(t, err)
	assert.Equal(t, saved, restored)
}

func TestController_ApplyStateValidatesFirst(t *testing.T) {
	c, root := sysfsController(t)

	err := c.ApplyState(State{"brightness": "5", "mode": "party"})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, "100\n", readAttr(t, filepath.Join(root, "brightness")), "nothing written")

	err = c.ApplyState(State{"STATE_PATH": "1"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

type deniedDriver struct {
	Driver
	role Role
}

func (d deniedDriver) Write(role Role, value string) error {
	if role == d.role {
		return &AttrError{Op: "write", Role: role, Path: "/sys/devices/platform/tuxedo_keyboard/" + role.String(), Err: fs.ErrPermission}
	}
	return d.Driver.Write(role, value)
}

func TestController_ApplyStateContinuesAfterWriteError(t *testing.T) {
	mem := NewMemory()
	c := NewController(deniedDriver{Driver: mem, role: RoleBrightness})

	err := c.ApplyState(State{"state": "1", "brightness": "50", "mode": "2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermission)

	state, err := c.ReadState()
	require.NoError(t, err)
	assert.Equal(t, "1", state["state"])
	assert.Equal(t, "2", state["mode"], "roles after the failure are still written")
	assert.Equal(t, "0", state["brightness"])
}

func TestController_MemoryColorsPrefixed(t *testing.T) {
	c := NewController(NewMemory())

	state, err := c.ReadState()
	require.NoError(t, err)
	assert.Equal(t, "0x0", state["color_left"])
}
