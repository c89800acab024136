package keyboard

import (
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/smazurov/kbdlight/internal/events"
	"github.com/smazurov/kbdlight/internal/settings"
	"github.com/smazurov/kbdlight/internal/sysfswatch"
	"github.com/smazurov/kbdlight/pkg/hotplug"
)

// SettingsStore is the part of the settings store the service uses.
type SettingsStore interface {
	Get() settings.Settings
	SetDriverState(state map[string]string) error
}

// Service owns the controller and the watcher on the driver directory. It
// applies writes under suppression so only out-of-band changes are reported
// as external, and reacts to screen, resume and hotplug events.
type Service struct {
	bus      *events.Bus
	store    SettingsStore
	logger   *slog.Logger
	interval time.Duration
	observer sysfswatch.Observer
	detect   func() Driver

	// writeMu keeps suppression scopes from interleaving.
	writeMu sync.Mutex

	mu       sync.Mutex
	ctrl     *Controller
	notifier *sysfswatch.Notifier
	unsubs   []func()
	dimmed   bool
	running  bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPollInterval sets the driver watch period.
func WithPollInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.interval = d
	}
}

// WithWatchObserver installs metrics hooks on the driver watcher.
func WithWatchObserver(o sysfswatch.Observer) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

// WithRedetect sets how a fresh driver is obtained when the platform device
// reappears.
func WithRedetect(fn func() Driver) ServiceOption {
	return func(s *Service) {
		s.detect = fn
	}
}

// NewService creates a stopped service around ctrl.
func NewService(ctrl *Controller, bus *events.Bus, store SettingsStore, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		ctrl:     ctrl,
		bus:      bus,
		store:    store,
		logger:   logger,
		interval: sysfswatch.DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start restores the saved state if configured, starts watching the driver
// and subscribes to system events.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if s.store.Get().RestoreOnStart {
		if _, err := s.Restore(); err != nil {
			s.logger.Warn("Failed to restore keyboard state on start", "error", err)
		}
	}

	if err := s.bind(); err != nil {
		return err
	}

	unsubs := []func(){
		s.bus.Subscribe(s.onScreenPower),
		s.bus.Subscribe(s.onResume),
		s.bus.Subscribe(s.onHotplug),
	}
	s.mu.Lock()
	s.unsubs = unsubs
	s.mu.Unlock()

	s.logger.Info("Keyboard service started", "root", s.controller().Driver().Root())
	return nil
}

// Stop unsubscribes from events and stops the driver watcher.
func (s *Service) Stop() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	n := s.notifier
	s.notifier = nil
	s.running = false
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if n != nil {
		n.Stop()
	}
	s.logger.Info("Keyboard service stopped")
}

// Notifier returns the active driver watcher, or nil when none is bound.
func (s *Service) Notifier() *sysfswatch.Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifier
}

// Controller returns the active controller.
func (s *Service) Controller() *Controller {
	return s.controller()
}

func (s *Service) controller() *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// State reads the full driver state.
func (s *Service) State() (State, error) {
	return s.controller().ReadState()
}

// Apply writes a partial state and returns the resulting full state.
func (s *Service) Apply(state State) (State, error) {
	return s.apply(events.SourceAPI, state)
}

// Restore applies the saved driver state. With nothing saved it only
// returns the current state.
func (s *Service) Restore() (State, error) {
	saved := s.store.Get().DriverState
	if len(saved) == 0 {
		s.logger.Debug("No saved keyboard state to restore")
		return s.State()
	}
	s.logger.Info("Restoring keyboard state", "state", saved)
	return s.apply(events.SourceRestore, saved)
}

// Save stores the current driver state in the settings file.
func (s *Service) Save() (State, error) {
	state, err := s.State()
	if err != nil {
		return state, err
	}
	if err := s.store.SetDriverState(state); err != nil {
		return state, err
	}
	s.logger.Info("Saved keyboard state", "state", state)
	return state, nil
}

// apply writes the entries of desired that differ from the driver inside a
// suppression scope and publishes the resulting state. Entries that already
// match are skipped so no ignore token is armed for a write that changes
// nothing.
func (s *Service) apply(source string, desired State) (State, error) {
	want, err := Normalize(desired)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctrl := s.controller()
	current, _ := ctrl.ReadState()
	pending := make(State, len(want))
	for name, value := range want {
		if cur, ok := current[name]; ok && sameValue(name, cur, value) {
			continue
		}
		pending[name] = value
	}

	var writeErr error
	if len(pending) > 0 {
		writeErr = sysfswatch.WithSuppressed(s.Notifier(), func() error {
			return ctrl.ApplyState(pending)
		})
		if writeErr != nil {
			s.reportWriteError(writeErr)
		}
	}

	state, readErr := ctrl.ReadState()
	if readErr != nil {
		s.logger.Warn("Failed to read keyboard state after write", "error", readErr)
	}
	if len(pending) > 0 {
		s.logger.Debug("Applied keyboard state", "source", source, "changed", pending)
		s.publishState(source, state, nil)
	}
	return state, writeErr
}

func sameValue(name, current, want string) bool {
	n, err := Normalize(State{name: current})
	return err == nil && n[name] == want
}

// reportWriteError logs every failed write and publishes permission failures.
func (s *Service) reportWriteError(err error) {
	s.logger.Error("Failed to write keyboard state", "error", err)

	for _, e := range unjoin(err) {
		var attrErr *AttrError
		if errors.As(e, &attrErr) && errors.Is(attrErr, ErrPermission) {
			s.bus.Publish(events.PermissionDeniedEvent{
				Role:      attrErr.Role.String(),
				Path:      attrErr.Path,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}
	}
}

func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func (s *Service) publishState(source string, state State, paths []string) {
	s.bus.Publish(events.DriverStateChangedEvent{
		State:     maps.Clone(state),
		Source:    source,
		Paths:     paths,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// bind starts a watcher on the driver root. Drivers without a root get none.
func (s *Service) bind() error {
	n, err := s.newNotifier()
	if err != nil || n == nil {
		return err
	}

	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
	return nil
}

// newNotifier starts a watcher on the current driver root, or returns nil
// when the driver has none.
func (s *Service) newNotifier() (*sysfswatch.Notifier, error) {
	ctrl := s.controller()
	root := ctrl.Driver().Root()
	if root == "" {
		s.logger.Info("Keyboard driver has no sysfs root, external changes are not tracked")
		return nil, nil
	}

	n := sysfswatch.New(s.logger,
		sysfswatch.WithName("keyboard"),
		sysfswatch.WithInterval(s.interval),
		sysfswatch.WithObserver(s.observer))
	n.SetCallback(func() { s.onExternalChange(n) })
	if err := n.Watch(root, false); err != nil {
		return nil, err
	}
	return n, nil
}

// rebind binds a new watcher unless the service has been stopped, and
// reports whether it is still running. The running check and the install
// happen under one lock so Stop either sees the new notifier or rebind sees
// the stop.
func (s *Service) rebind() (bool, error) {
	n, err := s.newNotifier()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		if n != nil {
			n.Stop()
		}
		return false, nil
	}
	old := s.notifier
	s.notifier = n
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	return true, nil
}

func (s *Service) unbind() {
	s.mu.Lock()
	n := s.notifier
	s.notifier = nil
	s.mu.Unlock()
	if n != nil {
		n.Stop()
	}
}

// onExternalChange runs on the watcher goroutine.
func (s *Service) onExternalChange(n *sysfswatch.Notifier) {
	state, err := s.controller().ReadState()
	if err != nil {
		s.logger.Warn("Failed to read keyboard state after external change", "error", err)
	}
	paths := n.LastChanges()
	s.logger.Info("Keyboard state changed externally", "paths", paths)
	s.publishState(events.SourceExternal, state, paths)
}

func (s *Service) onScreenPower(e events.ScreenPowerChangedEvent) {
	if !s.store.Get().LEDOffOnScreensaver {
		return
	}

	if e.Off {
		on, err := s.controller().State()
		if err != nil || !on {
			return
		}
		s.logger.Info("Screen powered off, turning keyboard backlight off")
		if _, err := s.apply(events.SourceScreen, State{RoleState.String(): "0"}); err == nil {
			s.setDimmed(true)
		}
		return
	}

	if !s.setDimmed(false) {
		return
	}
	s.logger.Info("Screen powered on, turning keyboard backlight back on")
	if _, err := s.apply(events.SourceScreen, State{RoleState.String(): "1"}); err != nil {
		s.logger.Warn("Failed to turn keyboard backlight back on", "error", err)
	}
}

// setDimmed stores v and returns the previous value.
func (s *Service) setDimmed(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.dimmed
	s.dimmed = v
	return prev
}

func (s *Service) onResume(e events.SystemResumedEvent) {
	if !s.store.Get().RestoreOnResume {
		return
	}
	s.logger.Info("System resumed, restoring keyboard state", "source", e.Source, "gap", e.Gap)
	if _, err := s.Restore(); err != nil {
		s.logger.Warn("Failed to restore keyboard state after resume", "error", err)
	}
}

func (s *Service) onHotplug(e events.DriverHotplugEvent) {
	switch e.Action {
	case hotplug.ActionRemove:
		s.logger.Warn("Keyboard driver removed", "devpath", e.DevPath)
		s.unbind()
	case hotplug.ActionAdd:
		s.logger.Info("Keyboard driver added", "devpath", e.DevPath)
		s.unbind()
		if s.detect != nil {
			d := s.detect()
			s.mu.Lock()
			s.ctrl = NewController(d)
			s.mu.Unlock()
		}
		running, err := s.rebind()
		if err != nil {
			s.logger.Error("Failed to watch keyboard driver", "error", err)
			return
		}
		if !running {
			return
		}
		if s.store.Get().RestoreOnStart {
			if _, err := s.Restore(); err != nil {
				s.logger.Warn("Failed to restore keyboard state after hotplug", "error", err)
			}
		}
	}
}
