package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/smazurov/kbdlight/internal/api"
	"github.com/smazurov/kbdlight/internal/config"
	"github.com/smazurov/kbdlight/internal/events"
	"github.com/smazurov/kbdlight/internal/keyboard"
	"github.com/smazurov/kbdlight/internal/logging"
	"github.com/smazurov/kbdlight/internal/metrics"
	"github.com/smazurov/kbdlight/internal/metrics/collectors"
	"github.com/smazurov/kbdlight/internal/metrics/exporters"
	"github.com/smazurov/kbdlight/internal/screensaver"
	"github.com/smazurov/kbdlight/internal/settings"
	"github.com/smazurov/kbdlight/internal/suspend"
	"github.com/smazurov/kbdlight/internal/sysfswatch"
	"github.com/smazurov/kbdlight/internal/systemd"
	"github.com/smazurov/kbdlight/pkg/hotplug"
)

// daemon owns every long running component. run builds and starts them in
// dependency order; stop tears down whatever run got to, in reverse.
type daemon struct {
	opts   *Options
	logger *slog.Logger

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	closers []func()
	server  *api.Server
}

func newDaemon(opts *Options, logger *slog.Logger) *daemon {
	return &daemon{opts: opts, logger: logger}
}

// onStop registers fn to run on stop. Once stop has run, fn is called
// immediately.
func (d *daemon) onStop(fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		fn()
		return
	}
	d.closers = append(d.closers, fn)
	d.mu.Unlock()
}

// run starts the daemon and blocks serving HTTP until stop.
func (d *daemon) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		cancel()
		return http.ErrServerClosed
	}
	d.cancel = cancel
	d.mu.Unlock()

	pollInterval := parseDuration(d.logger, "driver.poll_interval", d.opts.DriverPollInterval, sysfswatch.DefaultInterval)
	suspendGap := parseDuration(d.logger, "suspend.gap", d.opts.SuspendGap, suspend.DefaultGap)

	bus := events.New()

	store := settings.NewStore(d.opts.SettingsFile)
	if err := store.Load(); err != nil {
		d.logger.Warn("Failed to load settings, using defaults", "path", store.Path(), "error", err)
	}

	var observer sysfswatch.Observer
	var promHandler http.Handler
	if d.opts.MetricsEnabled {
		reg := metrics.NewRegistry()
		observer = metrics.NewWatchObserver(reg)
		collector := collectors.NewEventCollector(bus, metrics.NewKeyboard(reg))
		collector.Start()
		d.onStop(collector.Stop)
		promHandler = exporters.HTTPHandler(reg)
	}

	kbdLogger := logging.GetLogger("keyboard")
	driver := keyboard.Detect(kbdLogger, d.opts.DriverRoot)
	service := keyboard.NewService(keyboard.NewController(driver), bus, store, kbdLogger,
		keyboard.WithPollInterval(pollInterval),
		keyboard.WithWatchObserver(observer),
		keyboard.WithRedetect(func() keyboard.Driver {
			return keyboard.Detect(kbdLogger, d.opts.DriverRoot)
		}),
	)
	if err := service.Start(); err != nil {
		return err
	}
	d.onStop(service.Stop)

	d.startScreensaver(bus, store, pollInterval, observer)
	d.startSuspendDetector(ctx, bus, suspendGap)
	if d.opts.DriverHotplug {
		d.startHotplug(ctx, bus)
	}
	d.startSettingsWatcher(bus, store)

	server := api.NewServer(&api.Options{
		AuthUsername:      d.opts.AuthUsername,
		AuthPassword:      d.opts.AuthPassword,
		Keyboard:          service,
		Settings:          store,
		EventBus:          bus,
		PrometheusHandler: promHandler,
	})
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return http.ErrServerClosed
	}
	d.server = server
	d.mu.Unlock()

	if ok, err := systemd.NotifyReady(); err != nil {
		d.logger.Warn("Failed to notify systemd", "error", err)
	} else if ok {
		d.logger.Debug("Notified systemd of readiness")
	}

	d.logger.Info("Starting HTTP server", "port", d.opts.Port, "auth", d.opts.AuthUsername != "")
	return server.Start(d.opts.Port)
}

func (d *daemon) startScreensaver(bus *events.Bus, store *settings.Store, interval time.Duration, observer sysfswatch.Observer) {
	saver := screensaver.New(bus, logging.GetLogger("screensaver"),
		screensaver.WithDir(d.opts.ScreensaverBacklightDir),
		screensaver.WithInterval(interval),
		screensaver.WithObserver(observer),
	)
	saver.SetEnabled(store.Get().LEDOffOnScreensaver)
	d.onStop(bus.Subscribe(func(e events.SettingsChangedEvent) {
		saver.SetEnabled(e.LEDOffOnScreensaver)
	}))

	if err := saver.Start(); err != nil {
		d.logger.Warn("Screensaver watcher unavailable", "error", err)
		return
	}
	d.onStop(saver.Stop)
}

func (d *daemon) startSuspendDetector(ctx context.Context, bus *events.Bus, gap time.Duration) {
	opts := []suspend.Option{suspend.WithGap(gap)}
	if d.opts.SuspendLogind {
		monitor, err := systemd.NewSleepMonitor()
		if err != nil {
			d.logger.Info("logind unavailable, relying on clock gaps", "error", err)
		} else {
			opts = append(opts, suspend.WithSleepSource(monitor))
		}
	}

	detector := suspend.New(bus, logging.GetLogger("suspend"), opts...)
	detector.Start(ctx)
	d.onStop(detector.Stop)
}

func (d *daemon) startHotplug(ctx context.Context, bus *events.Bus) {
	monitor, err := hotplug.NewMonitor()
	if err != nil {
		d.logger.Info("Driver hotplug disabled", "error", err)
		return
	}
	monitor.AddSubsystemFilter(hotplug.SubsystemPlatform)

	ch := make(chan hotplug.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := monitor.Run(ctx, ch); runErr != nil && ctx.Err() == nil {
			d.logger.Warn("Uevent monitor stopped", "error", runErr)
		}
	}()

	relay := keyboard.NewHotplugRelay(bus, logging.GetLogger("hotplug"), d.opts.DriverRoot)
	go relay.Run(ctx, ch)

	// the socket read times out, so Run notices cancellation within a second
	d.onStop(func() {
		<-done
		_ = monitor.Close()
	})
}

// startSettingsWatcher reloads the settings file when it is edited by hand.
// Writes made through the store compare equal and are not re-announced.
func (d *daemon) startSettingsWatcher(bus *events.Bus, store *settings.Store) {
	logger := logging.GetLogger("settings")
	watcher := config.NewConfigWatcher(store.Path(), settings.Load, logger,
		config.WithErrorHandler[settings.Settings](func(err error) {
			logger.Warn("Ignoring unreadable settings file", "path", store.Path(), "error", err)
		}),
	)
	watcher.OnReload(func(st settings.Settings) {
		if store.Replace(st) {
			logger.Info("Settings reloaded from disk", "path", store.Path())
			bus.Publish(api.SettingsChanged(st, true))
		}
	})

	if err := watcher.Start(); err != nil {
		logger.Warn("Settings file watcher unavailable", "path", store.Path(), "error", err)
		return
	}
	d.onStop(func() { _ = watcher.Stop() })
}

// stop shuts the HTTP server first, then every component in reverse start
// order. It is safe to call more than once and while run is still starting.
func (d *daemon) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	server := d.server
	cancel := d.cancel
	closers := d.closers
	d.closers = nil
	d.mu.Unlock()

	if server != nil {
		if err := server.Stop(); err != nil {
			d.logger.Error("Error stopping HTTP server", "error", err)
		}
	}

	if cancel != nil {
		cancel()
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}

	if _, err := systemd.NotifyStopping(); err != nil {
		d.logger.Debug("Failed to notify systemd", "error", err)
	}
}

func parseDuration(logger *slog.Logger, key, value string, fallback time.Duration) time.Duration {
	dur, err := time.ParseDuration(value)
	if err != nil || dur <= 0 {
		logger.Warn("Invalid duration, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return dur
}
