// Package screensaver reports when the display panel powers down or back up
// by watching bl_power of every backlight device.
package screensaver

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/kbdlight/internal/events"
	"github.com/smazurov/kbdlight/internal/sysfswatch"
)

// DefaultDir is the backlight class directory.
const DefaultDir = "/sys/class/backlight"

// Device follows the power state of one backlight device.
type Device struct {
	name     string
	path     string
	logger   *slog.Logger
	notifier *sysfswatch.Notifier
	onChange func(*Device)

	mu      sync.Mutex
	powered bool
}

func newDevice(path string, logger *slog.Logger, opts ...sysfswatch.Option) (*Device, error) {
	d := &Device{
		name:   filepath.Base(path),
		path:   path,
		logger: logger.With("device", filepath.Base(path)),
	}

	powered, err := readPower(d.powerFile())
	if err != nil {
		return nil, err
	}
	d.powered = powered

	d.notifier = sysfswatch.New(d.logger, append(opts, sysfswatch.WithName("backlight:"+d.name))...)
	d.notifier.SetCallback(d.refresh)
	if err := d.notifier.Watch(path, false); err != nil {
		return nil, err
	}
	return d, nil
}

// Name returns the device directory name, e.g. intel_backlight.
func (d *Device) Name() string { return d.name }

// Powered reports whether the panel behind this device is lit.
func (d *Device) Powered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powered
}

func (d *Device) powerFile() string {
	return filepath.Join(d.path, "bl_power")
}

// refresh runs on the device watcher goroutine. Other attributes of the
// device (actual_brightness) change often; only a bl_power flip is passed on.
func (d *Device) refresh() {
	powered, err := readPower(d.powerFile())
	if err != nil {
		d.logger.Warn("Failed to read backlight power", "error", err)
		return
	}

	d.mu.Lock()
	if powered == d.powered {
		d.mu.Unlock()
		d.logger.Debug("Backlight power not changed")
		return
	}
	d.powered = powered
	onChange := d.onChange
	d.mu.Unlock()

	d.logger.Debug("Backlight power changed", "powered", powered)
	if onChange != nil {
		onChange(d)
	}
}

func (d *Device) stop() {
	d.notifier.Stop()
}

// readPower interprets bl_power: 0 is FB_BLANK_UNBLANK, anything else is a
// blanked panel.
func readPower(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return v == 0, nil
}

// Watcher aggregates all backlight devices. The screen counts as on while at
// least one device is powered; each flip of that aggregate is published as a
// ScreenPowerChangedEvent.
type Watcher struct {
	dir      string
	bus      *events.Bus
	logger   *slog.Logger
	interval time.Duration
	observer sysfswatch.Observer

	mu       sync.Mutex
	devices  []*Device
	screenOn bool
	enabled  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDir overrides the backlight class directory.
func WithDir(dir string) Option {
	return func(w *Watcher) {
		if dir != "" {
			w.dir = dir
		}
	}
}

// WithInterval sets the poll period of every device watcher.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithObserver installs metrics hooks on every device watcher.
func WithObserver(o sysfswatch.Observer) Option {
	return func(w *Watcher) {
		w.observer = o
	}
}

// New creates a stopped watcher that publishes on bus.
func New(bus *events.Bus, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      DefaultDir,
		bus:      bus,
		logger:   logger,
		interval: sysfswatch.DefaultInterval,
		screenOn: true,
		enabled:  true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start registers a device watcher for every backlight device. A machine
// without backlight devices is not an error; the screen is then always on.
func (w *Watcher) Start() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			w.logger.Info("No backlight class directory, screen saver tracking disabled", "dir", w.dir)
			return nil
		}
		return fmt.Errorf("list backlight devices: %w", err)
	}

	var devices []*Device
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		// entries are symlinks into /sys/devices
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}

		d, err := newDevice(path, w.logger,
			sysfswatch.WithInterval(w.interval),
			sysfswatch.WithObserver(w.observer))
		if err != nil {
			w.logger.Warn("Skipping backlight device", "path", path, "error", err)
			continue
		}
		w.logger.Debug("Registered backlight device", "path", path, "powered", d.Powered())
		devices = append(devices, d)
	}

	w.mu.Lock()
	w.devices = devices
	w.screenOn = anyPowered(devices)
	for _, d := range devices {
		d.mu.Lock()
		d.onChange = w.deviceChanged
		d.mu.Unlock()
	}
	screenOn := w.screenOn
	w.mu.Unlock()

	w.logger.Info("Screen saver watcher started", "devices", len(devices), "screen_on", screenOn)
	return nil
}

// Stop stops every device watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	devices := w.devices
	w.devices = nil
	w.mu.Unlock()

	for _, d := range devices {
		d.stop()
	}
}

// SetEnabled gates publishing. The aggregate state keeps tracking while
// disabled so re-enabling does not replay a stale flip.
func (w *Watcher) SetEnabled(enabled bool) {
	w.mu.Lock()
	w.enabled = enabled
	w.mu.Unlock()
}

// ScreenOn reports the aggregate panel state.
func (w *Watcher) ScreenOn() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.screenOn
}

// Devices returns the names of the tracked devices.
func (w *Watcher) Devices() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, len(w.devices))
	for i, d := range w.devices {
		names[i] = d.Name()
	}
	return names
}

func (w *Watcher) deviceChanged(d *Device) {
	w.mu.Lock()
	on := anyPowered(w.devices)
	if on == w.screenOn {
		w.mu.Unlock()
		w.logger.Debug("Screen power state not changed", "device", d.Name(), "powered", d.Powered())
		return
	}
	w.screenOn = on
	enabled := w.enabled
	w.mu.Unlock()

	w.logger.Info("Screen power changed", "device", d.Name(), "screen_on", on)
	if !enabled {
		return
	}
	w.bus.Publish(events.ScreenPowerChangedEvent{
		Off:       !on,
		Device:    d.Name(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func anyPowered(devices []*Device) bool {
	for _, d := range devices {
		if d.Powered() {
			return true
		}
	}
	return len(devices) == 0
}
