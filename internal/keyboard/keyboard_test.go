package keyboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleNames(t *testing.T) {
	for _, role := range Roles() {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := ParseRole("COLOR_LEFT_PATH")
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.Equal(t, "Role(42)", Role(42).String())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"0", ModeCustom, false},
		{"7", ModeWave, false},
		{"breathe", ModeBreathe, false},
		{"Random_Color", ModeRandomColor, false},
		{" 3 ", ModeDance, false},
		{"8", 0, true},
		{"-1", 0, true},
		{"disco", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, Modes(), 8)
}

func TestPanelRoles(t *testing.T) {
	assert.Equal(t, RoleColorLeft, PanelLeft.Role())
	assert.Equal(t, RoleColorCenter, PanelCenter.Role())
	assert.Equal(t, RoleColorRight, PanelRight.Role())
	assert.Equal(t, "center", PanelCenter.String())
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"0xff8000", RGB{0xff, 0x80, 0x00}, false},
		{"0XFF8000", RGB{0xff, 0x80, 0x00}, false},
		{"#00ff00", RGB{0, 0xff, 0}, false},
		{"ff", RGB{0, 0, 0xff}, false},
		{"0", RGB{}, false},
		{"", RGB{}, true},
		{"0x", RGB{}, true},
		{"1234567", RGB{}, true},
		{"zzzzzz", RGB{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "0x0a0b0c", RGB{10, 11, 12}.String())
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(State{
		"state":        "true",
		"brightness":   "300",
		"mode":         "wave",
		"color_left":   "ff0000",
		"color_center": "#00FF00",
	})
	require.NoError(t, err)
	assert.Equal(t, State{
		"state":        "1",
		"brightness":   "255",
		"mode":         "7",
		"color_left":   "0xff0000",
		"color_center": "0x00ff00",
	}, got)

	_, err = Normalize(State{"brightness": "-5"})
	require.NoError(t, err)

	_, err = Normalize(State{"brightness": "bright", "volume": "11"})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestAttrErrorPermission(t *testing.T) {
	err := error(&AttrError{Op: "write", Role: RoleMode, Path: "/sys/x/mode", Err: errors.New("boom")})
	assert.False(t, errors.Is(err, ErrPermission))
	assert.Contains(t, err.Error(), "write mode (/sys/x/mode)")
}
