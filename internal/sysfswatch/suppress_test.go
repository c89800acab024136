package sysfswatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuppress_RestoresPreviousState(t *testing.T) {
	tests := []struct {
		name    string
		initial bool
	}{
		{"enabled before", true},
		{"disabled before", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(testLogger())
			n.SetEnabled(tt.initial)

			release := Suppress(n)
			assert.False(t, n.Enabled())
			assert.Equal(t, uint32(1), n.PendingIgnores())

			release()
			release()
			assert.Equal(t, tt.initial, n.Enabled())
			assert.Equal(t, uint32(1), n.PendingIgnores(), "release leaves the ignore token armed")
		})
	}
}

func TestSuppress_Nested(t *testing.T) {
	n := New(testLogger())

	outer := Suppress(n)
	inner := Suppress(n)
	inner()
	assert.False(t, n.Enabled(), "inner scope restores the outer scope's state")
	outer()

	assert.True(t, n.Enabled())
	assert.Equal(t, uint32(2), n.PendingIgnores())
}

func TestSuppress_NilNotifier(t *testing.T) {
	var n *Notifier

	assert.NotPanics(t, func() {
		Suppress(n)()
		Suppress(nil)()
	})
}

func TestWithSuppressed_ReleasesOnError(t *testing.T) {
	n := New(testLogger())
	errWrite := errors.New("write failed")

	err := WithSuppressed(n, func() error {
		assert.False(t, n.Enabled())
		return errWrite
	})

	require.ErrorIs(t, err, errWrite)
	assert.True(t, n.Enabled())
}

func TestWithSuppressed_ReleasesOnPanic(t *testing.T) {
	n := New(testLogger())

	assert.Panics(t, func() {
		_ = WithSuppressed(n, func() error {
			panic("driver exploded")
		})
	})
	assert.True(t, n.Enabled())
}
