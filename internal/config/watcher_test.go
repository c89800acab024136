package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type testSettings struct {
	RestoreOnStart bool `toml:"restore_on_start"`
	Value          int  `toml:"value"`
}

func loadTestSettings(path string) (testSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testSettings{}, err
	}
	var s testSettings
	err = toml.Unmarshal(data, &s)
	return s, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// startWatcher writes initial content to a fresh settings file and starts a
// watcher on it with a short debounce.
func startWatcher(t *testing.T, initial string, opts ...WatcherOption[testSettings]) (*Watcher[testSettings], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	opts = append([]WatcherOption[testSettings]{WithDebounce[testSettings](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loadTestSettings, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})

	// let inotify settle
	time.Sleep(50 * time.Millisecond)
	return w, path
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	received := make(chan testSettings, 1)
	w, path := startWatcher(t, "value = 1\n")
	w.OnReload(func(s testSettings) { received <- s })

	write(t, path, "restore_on_start = true\nvalue = 42\n")

	select {
	case s := <-received:
		if !s.RestoreOnStart || s.Value != 42 {
			t.Errorf("got %+v, want restore_on_start=true value=42", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestConfigWatcher_AtomicRenameSave(t *testing.T) {
	received := make(chan testSettings, 1)
	w, path := startWatcher(t, "value = 1\n")
	w.OnReload(func(s testSettings) { received <- s })

	tmp := path + ".tmp"
	write(t, tmp, "value = 7\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-received:
		if s.Value != 7 {
			t.Errorf("got value %d, want 7", s.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresSiblingFiles(t *testing.T) {
	var count atomic.Int32
	w, path := startWatcher(t, "value = 1\n")
	w.OnReload(func(testSettings) { count.Add(1) })

	write(t, filepath.Join(filepath.Dir(path), "other.toml"), "value = 2\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no reloads for sibling files, got %d", got)
	}
}

func TestConfigWatcher_MultipleHandlers(t *testing.T) {
	var count atomic.Int32
	var mu sync.Mutex
	var seen []testSettings

	w, path := startWatcher(t, "value = 1\n")
	for range 3 {
		w.OnReload(func(s testSettings) {
			count.Add(1)
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		})
	}

	write(t, path, "value = 2\n")
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 3 {
		t.Errorf("expected 3 handlers called, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, s := range seen {
		if s.Value != 2 {
			t.Errorf("handler %d got %+v", i, s)
		}
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	var count1, count2 atomic.Int32
	w, path := startWatcher(t, "value = 1\n")
	w.OnReload(func(testSettings) { count1.Add(1) })
	unsub2 := w.OnReload(func(testSettings) { count2.Add(1) })

	write(t, path, "value = 10\n")
	time.Sleep(300 * time.Millisecond)

	unsub2()
	unsub2()

	write(t, path, "value = 20\n")
	time.Sleep(300 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	errorReceived := make(chan error, 1)
	received := make(chan testSettings, 1)

	w, path := startWatcher(t, "value = 1\n", WithErrorHandler[testSettings](func(err error) {
		errorReceived <- err
	}))
	w.OnReload(func(s testSettings) { received <- s })

	write(t, path, "invalid toml [[[")

	select {
	case <-errorReceived:
	case <-received:
		t.Fatal("handler should not be called on load error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	var count atomic.Int32
	var last atomic.Int32

	w, path := startWatcher(t, "value = 0\n", WithDebounce[testSettings](200*time.Millisecond))
	w.OnReload(func(s testSettings) {
		count.Add(1)
		last.Store(int32(s.Value))
	})

	for i := 1; i <= 5; i++ {
		write(t, path, fmt.Sprintf("value = %d\n", i))
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("expected final value 5, got %d", got)
	}
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	write(t, path, "value = 1\n")

	var count atomic.Int32
	w := NewConfigWatcher(path, loadTestSettings, newTestLogger(), WithDebounce[testSettings](50*time.Millisecond))
	w.OnReload(func(testSettings) { count.Add(1) })

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	write(t, path, "value = 99\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}

func TestConfigWatcher_StartMissingDirectory(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "missing", "settings.toml"), loadTestSettings, newTestLogger())
	if err := w.Start(); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop on unstarted watcher: %v", err)
	}
}
