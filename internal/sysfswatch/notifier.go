package sysfswatch

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/smazurov/kbdlight/internal/logging"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = time.Second

var (
	// ErrAlreadyWatching is returned when Watch is called on a bound notifier.
	ErrAlreadyWatching = errors.New("notifier is already watching a target")
	// ErrStopped is returned when Watch is called after Stop.
	ErrStopped = errors.New("notifier is stopped")
)

// Notifier polls one Target on a background goroutine and invokes a single
// callback when the target's content changes.
//
// Delivery can be turned off with SetEnabled and individual changes can be
// swallowed with IgnoreNextEvent. The baseline snapshot always advances, so a
// dropped change is never re-reported by a later tick.
type Notifier struct {
	name     string
	interval time.Duration
	logger   *slog.Logger
	scanner  *Scanner
	observer Observer

	mu            sync.Mutex
	enabled       bool
	ignorePending uint32
	callback      func()
	target        *Target
	stopped       bool
	lastChanges   []string

	// tickMu serializes ticks; previous is only touched while holding it.
	tickMu   sync.Mutex
	previous Snapshot

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithInterval sets the poll period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithName labels the notifier in logs and metrics.
func WithName(name string) Option {
	return func(n *Notifier) {
		n.name = name
	}
}

// WithObserver installs a statistics observer.
func WithObserver(o Observer) Option {
	return func(n *Notifier) {
		if o != nil {
			n.observer = o
		}
	}
}

// New creates a stopped, unbound notifier with delivery enabled.
func New(logger *slog.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = logging.GetLogger("sysfswatch")
	}

	n := &Notifier{
		name:     "sysfs",
		interval: DefaultInterval,
		observer: nopObserver{},
		enabled:  true,
		previous: make(Snapshot),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	n.logger = logger.With("watcher", n.name)
	n.scanner = NewScanner(n.logger)
	n.scanner.onError = func(path string, err error) {
		n.observer.EntryFailed(n.name, path, err)
	}
	return n
}

// SetCallback replaces the notification target. A nil callback clears it.
func (n *Notifier) SetCallback(fn func()) {
	n.mu.Lock()
	n.callback = fn
	n.mu.Unlock()
}

// SetEnabled switches delivery on or off and returns the previous value.
func (n *Notifier) SetEnabled(enabled bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	prev := n.enabled
	n.enabled = enabled
	return prev
}

// Enabled reports whether delivery is on.
func (n *Notifier) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// IgnoreNextEvent swallows the next detected change. Calls stack.
func (n *Notifier) IgnoreNextEvent() {
	n.mu.Lock()
	n.ignorePending++
	n.mu.Unlock()
}

// PendingIgnores returns the number of armed ignore tokens.
func (n *Notifier) PendingIgnores() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ignorePending
}

// Target returns the bound target, if any.
func (n *Notifier) Target() (Target, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.target == nil {
		return Target{}, false
	}
	return *n.target, true
}

// LastChanges returns the paths that triggered the most recent detected change.
func (n *Notifier) LastChanges() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.lastChanges...)
}

// Watch binds the notifier to path, records the baseline snapshot and starts
// the poll goroutine. An empty path is a silent no-op: some drivers have no
// observable root.
func (n *Notifier) Watch(path string, recursive bool) error {
	if path == "" {
		n.logger.Debug("No watch root, notifier stays idle")
		return nil
	}

	target := Target{Path: filepath.Clean(path), Recursive: recursive}

	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return ErrStopped
	}
	if n.target != nil {
		n.mu.Unlock()
		return ErrAlreadyWatching
	}
	n.target = &target
	n.wg.Add(1)
	n.mu.Unlock()

	n.tickMu.Lock()
	n.previous = n.scanner.Scan(target, nil)
	entries := len(n.previous)
	n.tickMu.Unlock()

	go n.loop()

	n.logger.Info("Sysfs watcher started",
		"path", target.Path,
		"recursive", target.Recursive,
		"interval", n.interval,
		"entries", entries)
	return nil
}

// Stop halts the poll goroutine and waits for it to exit. It is safe to call
// more than once and from any goroutine except the callback itself.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		n.mu.Lock()
		n.stopped = true
		n.mu.Unlock()
		close(n.stopCh)
	})
	n.wg.Wait()
}

func (n *Notifier) loop() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			n.logger.Debug("Sysfs watcher stopped")
			return
		case <-ticker.C:
			// Stop may have raced with the tick
			select {
			case <-n.stopCh:
				n.logger.Debug("Sysfs watcher stopped")
				return
			default:
			}
			n.Poll()
		}
	}
}

// Poll runs one tick synchronously and reports whether the callback ran.
// The background loop calls it on every interval; it must not be called from
// inside the callback.
func (n *Notifier) Poll() bool {
	n.tickMu.Lock()
	defer n.tickMu.Unlock()

	target, ok := n.Target()
	if !ok {
		return false
	}

	start := time.Now()
	current := n.scanner.Scan(target, n.previous)
	prev := n.previous
	n.previous = current
	hasChange := Changed(prev, current)
	n.observer.TickCompleted(n.name, time.Since(start), hasChange)

	if !hasChange {
		return false
	}
	changed := Diff(prev, current)

	callback, reason := n.admit(changed)
	if callback == nil {
		n.logger.Debug("Detected driver change, not delivered", "reason", reason, "paths", changed)
		n.observer.Dropped(n.name, reason)
		return false
	}

	n.logger.Debug("Detected driver external change", "paths", changed)
	n.observer.Delivered(n.name)
	n.invoke(callback)
	return true
}

// admit applies the ignore counter, then the enabled flag. An ignore token is
// consumed even while delivery is disabled.
func (n *Notifier) admit(changed []string) (func(), DropReason) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.lastChanges = changed

	switch {
	case n.ignorePending > 0:
		n.ignorePending--
		return nil, DropIgnored
	case !n.enabled:
		return nil, DropDisabled
	case n.callback == nil:
		return nil, DropNoCallback
	}
	return n.callback, ""
}

func (n *Notifier) invoke(callback func()) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Change callback panicked", "panic", r)
		}
	}()
	callback()
}
