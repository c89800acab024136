// Package hotplug listens for kernel kobject uevents on a netlink socket.
//
// It is used to notice a platform driver being loaded or unloaded while the
// daemon runs, so no udev daemon or cgo binding is required.
package hotplug

import (
	"bytes"
	"strings"
)

// Action constants for device events.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// SubsystemPlatform is the subsystem of platform drivers such as
// tuxedo_keyboard.
const SubsystemPlatform = "platform"

// Event is one kernel uevent.
type Event struct {
	Action    string            // add, remove, change, bind, unbind
	KObj      string            // /devices/platform/tuxedo_keyboard
	Subsystem string            // platform
	Driver    string            // DRIVER, when bound
	DevPath   string            // DEVPATH, equal to KObj for kernel events
	Env       map[string]string // every KEY=VALUE pair
}

var libudevPrefix = []byte("libudev")

// ParseUEvent decodes "ACTION@KOBJ\0KEY=VALUE\0...". Messages re-broadcast by
// udev carry a binary libudev header that is skipped. It returns nil for
// anything that is not a uevent.
func ParseUEvent(data []byte) *Event {
	if bytes.HasPrefix(data, libudevPrefix) {
		data = skipLibudevHeader(data)
	}

	parts := bytes.Split(data, []byte{0})
	if len(parts) == 0 || len(parts[0]) == 0 {
		return nil
	}

	action, kobj, ok := strings.Cut(string(parts[0]), "@")
	if !ok || action == "" {
		return nil
	}

	event := &Event{
		Action: action,
		KObj:   kobj,
		Env:    make(map[string]string),
	}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		event.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			event.Subsystem = value
		case "DRIVER":
			event.Driver = value
		case "DEVPATH":
			event.DevPath = value
		}
	}
	return event
}

func skipLibudevHeader(data []byte) []byte {
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			continue
		}
		rest := data[i+1:]
		head, _, _ := bytes.Cut(rest, []byte{0})
		if idx := bytes.IndexByte(head, '@'); idx > 0 && idx < 20 {
			return rest
		}
	}
	return data
}
