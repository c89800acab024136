package keyboard

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/smazurov/kbdlight/internal/events"
	"github.com/smazurov/kbdlight/pkg/hotplug"
)

// KObjPath returns the kernel object path of the driver at root as it
// appears in uevents, e.g. /devices/platform/tuxedo_keyboard.
func KObjPath(root string) string {
	path := filepath.Clean(root)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return strings.TrimPrefix(path, "/sys")
}

// HotplugRelay turns add and remove uevents of the driver's platform device
// into DriverHotplugEvent on the bus.
type HotplugRelay struct {
	bus    *events.Bus
	logger *slog.Logger
	kobj   string
}

// NewHotplugRelay creates a relay for the driver at root.
func NewHotplugRelay(bus *events.Bus, logger *slog.Logger, root string) *HotplugRelay {
	return &HotplugRelay{bus: bus, logger: logger, kobj: KObjPath(root)}
}

// Run forwards matching events until in is closed or ctx is done.
func (r *HotplugRelay) Run(ctx context.Context, in <-chan hotplug.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-in:
			if !ok {
				return
			}
			r.handle(e)
		}
	}
}

func (r *HotplugRelay) handle(e hotplug.Event) {
	if e.KObj != r.kobj {
		return
	}
	if e.Action != hotplug.ActionAdd && e.Action != hotplug.ActionRemove {
		r.logger.Debug("Ignoring driver uevent", "action", e.Action, "kobj", e.KObj)
		return
	}

	r.logger.Debug("Driver uevent", "action", e.Action, "kobj", e.KObj)
	r.bus.Publish(events.DriverHotplugEvent{
		Action:    e.Action,
		DevPath:   e.KObj,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
