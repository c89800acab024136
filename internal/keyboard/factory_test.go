package keyboard

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		root      func(t *testing.T) string
		wantSysfs bool
	}{
		{"driver present", driverDir, true},
		{"missing root", func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone") }, false},
		{"empty root", func(t *testing.T) string { return t.TempDir() }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Detect(testLogger(), tt.root(t))

			_, isSysfs := d.(*SysfsDriver)
			assert.Equal(t, tt.wantSysfs, isSysfs)
			if !tt.wantSysfs {
				assert.Empty(t, d.Root())
			}
		})
	}
}
