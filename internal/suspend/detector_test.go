package suspend

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/kbdlight/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSource struct {
	resume chan struct{}
	closed chan struct{}
	once   sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{resume: make(chan struct{}), closed: make(chan struct{})}
}

func (s *fakeSource) Run(ctx context.Context, onResume func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.resume:
			onResume()
		}
	}
}

func (s *fakeSource) Close() {
	s.once.Do(func() { close(s.closed) })
}

func newDetector(t *testing.T, opts ...Option) (*Detector, *fakeClock, chan any) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	bus := events.New()
	ch := make(chan any, 8)
	t.Cleanup(events.SubscribeToChannel[events.SystemResumedEvent](bus, ch))

	d := New(bus, testLogger(), append([]Option{WithClock(clock.Now)}, opts...)...)
	return d, clock, ch
}

func nextResume(t *testing.T, ch chan any) events.SystemResumedEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e.(events.SystemResumedEvent)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for SystemResumedEvent")
	}
	return events.SystemResumedEvent{}
}

func noResume(t *testing.T, ch chan any) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDetector_FirstTickOnlyRecords(t *testing.T) {
	d, clock, ch := newDetector(t)

	clock.Advance(time.Hour)
	d.check()
	noResume(t, ch)
}

func TestDetector_RegularTicks(t *testing.T) {
	d, clock, ch := newDetector(t)

	d.check()
	for range 10 {
		clock.Advance(time.Second)
		d.check()
	}
	noResume(t, ch)
}

func TestDetector_GapMeansResume(t *testing.T) {
	d, clock, ch := newDetector(t)

	d.check()
	clock.Advance(42 * time.Second)
	d.check()

	e := nextResume(t, ch)
	assert.Equal(t, "clock", e.Source)
	assert.Equal(t, "42s", e.Gap)

	clock.Advance(time.Second)
	d.check()
	noResume(t, ch)
}

func TestDetector_GapThreshold(t *testing.T) {
	tests := []struct {
		name   string
		gap    time.Duration
		resume bool
	}{
		{"below", 3400 * time.Millisecond, false},
		{"at", 3500 * time.Millisecond, true},
		{"above", 10 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, clock, ch := newDetector(t)
			d.check()
			clock.Advance(tt.gap)
			d.check()
			if tt.resume {
				nextResume(t, ch)
			} else {
				noResume(t, ch)
			}
		})
	}
}

func TestDetector_CustomGap(t *testing.T) {
	d, clock, ch := newDetector(t, WithGap(time.Minute))

	d.check()
	clock.Advance(30 * time.Second)
	d.check()
	noResume(t, ch)
}

func TestDetector_CoalescesSources(t *testing.T) {
	src := newFakeSource()
	d, clock, ch := newDetector(t, WithSleepSource(src), WithTick(time.Hour))
	d.Start(context.Background())
	t.Cleanup(d.Stop)

	// the ticker goroutine records the baseline on start
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return !d.last.IsZero()
	}, 2*time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	src.resume <- struct{}{}
	assert.Equal(t, "logind", nextResume(t, ch).Source)

	// the late clock tick sees the same sleep
	clock.Advance(time.Second)
	d.check()
	noResume(t, ch)

	// a later sleep is reported again
	clock.Advance(time.Minute)
	d.check()
	assert.Equal(t, "clock", nextResume(t, ch).Source)
}

func TestDetector_StopClosesSource(t *testing.T) {
	src := newFakeSource()
	d, _, _ := newDetector(t, WithSleepSource(src))
	d.Start(context.Background())

	d.Stop()
	d.Stop()

	select {
	case <-src.closed:
	default:
		t.Fatal("sleep source not closed")
	}
}

func TestDetector_StopWithoutStart(t *testing.T) {
	d, _, _ := newDetector(t)
	assert.NotPanics(t, d.Stop)
}
