// Package suspend detects that the machine came back from sleep.
//
// Two sources feed the same Detector: a wall-clock ticker that notices when
// far more time passed between two ticks than the tick period, and an
// optional logind PrepareForSleep subscription. Both publish
// events.SystemResumedEvent; a resume seen by both sources is reported once.
package suspend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/kbdlight/internal/events"
)

const (
	// DefaultGap is the tick gap treated as a resume.
	DefaultGap = 3500 * time.Millisecond
	// DefaultTick is the ticker period.
	DefaultTick = time.Second
)

// SleepSource reports resumes from an external authority such as logind.
type SleepSource interface {
	Run(ctx context.Context, onResume func())
	Close()
}

// Detector publishes SystemResumedEvent on the bus. It is constructed once by
// the daemon and handed to whoever needs it.
type Detector struct {
	bus    *events.Bus
	logger *slog.Logger
	gap    time.Duration
	tick   time.Duration
	now    func() time.Time
	source SleepSource

	mu         sync.Mutex
	last       time.Time
	lastResume time.Time

	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Detector.
type Option func(*Detector)

// WithGap sets the tick gap treated as a resume.
func WithGap(d time.Duration) Option {
	return func(det *Detector) {
		if d > 0 {
			det.gap = d
		}
	}
}

// WithTick sets the ticker period.
func WithTick(d time.Duration) Option {
	return func(det *Detector) {
		if d > 0 {
			det.tick = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(det *Detector) {
		det.now = now
	}
}

// WithSleepSource adds a second resume source. The detector closes it on Stop.
func WithSleepSource(s SleepSource) Option {
	return func(det *Detector) {
		det.source = s
	}
}

// New creates a stopped detector.
func New(bus *events.Bus, logger *slog.Logger, opts ...Option) *Detector {
	d := &Detector{
		bus:    bus,
		logger: logger,
		gap:    DefaultGap,
		tick:   DefaultTick,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start runs the ticker and the optional sleep source until Stop or until ctx
// is done.
func (d *Detector) Start(ctx context.Context) {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.tick)
		defer ticker.Stop()

		d.check()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.check()
			}
		}
	}()

	if d.source != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.source.Run(ctx, func() { d.resumed("logind", 0) })
		}()
	}

	d.logger.Info("Suspend detector started", "gap", d.gap, "logind", d.source != nil)
}

// Stop ends both sources and waits for them. It is safe to call more than
// once.
func (d *Detector) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel == nil {
		return
	}

	d.stopOnce.Do(func() {
		cancel()
		if d.source != nil {
			d.source.Close()
		}
		d.wg.Wait()
	})
}

// wall drops the monotonic reading; the monotonic clock stops during suspend.
func (d *Detector) wall() time.Time {
	return d.now().Round(0)
}

// check records one tick. The first tick only sets the baseline.
func (d *Detector) check() {
	now := d.wall()

	d.mu.Lock()
	last := d.last
	d.last = now
	d.mu.Unlock()

	if last.IsZero() {
		return
	}
	if gap := now.Sub(last); gap >= d.gap {
		d.resumed("clock", gap)
	}
}

func (d *Detector) resumed(source string, gap time.Duration) {
	now := d.wall()

	d.mu.Lock()
	if !d.lastResume.IsZero() && now.Sub(d.lastResume) < d.gap {
		d.mu.Unlock()
		d.logger.Debug("Resume already reported", "source", source)
		return
	}
	d.lastResume = now
	d.mu.Unlock()

	ev := events.SystemResumedEvent{
		Source:    source,
		Timestamp: now.Format(time.RFC3339),
	}
	if gap > 0 {
		ev.Gap = gap.Round(time.Millisecond).String()
	}
	d.logger.Info("System resumed", "source", source, "gap", ev.Gap)
	d.bus.Publish(ev)
}
