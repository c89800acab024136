package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	defer mutex.Unlock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	if err := Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"sysfswatch": "debug",
			"api":        "warn",
		},
	}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"sysfswatch", true, true, true},
		{"api", false, false, true},
		{"keyboard", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	before := GetLogger("sysfswatch")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	_ = Initialize(Config{
		Level:   "info",
		Modules: map[string]string{"sysfswatch": "debug"},
	})

	after := GetLogger("sysfswatch")
	if before != after {
		t.Error("logger should be cached across Initialize")
	}
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("cached logger should follow the new module level")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	logger := GetLogger("keyboard")
	if !SetModuleLevel("keyboard", "error") {
		t.Fatal("SetModuleLevel rejected a valid level")
	}
	if logger.Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be filtered after raising level to error")
	}
	if SetModuleLevel("keyboard", "loud") {
		t.Error("SetModuleLevel accepted an invalid level")
	}
}

func TestInitializeWritesLogFile(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	path := filepath.Join(t.TempDir(), "kbdlight.log")
	if err := Initialize(Config{Level: "debug", Format: "json", File: path}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	GetLogger("screensaver").Debug("bl_power changed", "off", true)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"bl_power changed"`) || !strings.Contains(out, `"module":"screensaver"`) {
		t.Errorf("unexpected log file contents: %s", out)
	}
}

func TestInitializeReportsUnopenableFile(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	err := Initialize(Config{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	if err == nil {
		t.Fatal("expected error for log file in missing directory")
	}
	// logging still works without the file
	GetLogger("main").Info("still alive")
}

type failingHandler struct{ err error }

func (f failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }
func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler        { return f }
func (f failingHandler) WithGroup(string) slog.Handler             { return f }

func TestFanoutRespectsPerHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(newFanout(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")
	logger.Info("info message")

	out := buf.String()
	if n := strings.Count(out, "debug only message"); n != 1 {
		t.Errorf("debug message written %d times, want 1. Output: %s", n, out)
	}
	if n := strings.Count(out, "info message"); n != 2 {
		t.Errorf("info message written %d times, want 2. Output: %s", n, out)
	}
	if n := strings.Count(out, "module=test"); n != 3 {
		t.Errorf("module attribute written %d times, want 3", n)
	}
}

func TestFanoutKeepsWritingAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("disk full")
	h := newFanout(failingHandler{err: boom}, slog.NewTextHandler(&buf, nil))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	err := h.Handle(context.Background(), r)

	if !errors.Is(err, boom) {
		t.Errorf("Handle error = %v, want %v", err, boom)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Error("second handler did not receive the record")
	}
}

func TestJournalKey(t *testing.T) {
	tests := []struct {
		groups []string
		key    string
		want   string
	}{
		{nil, "module", "MODULE"},
		{nil, "watcher", "WATCHER"},
		{[]string{"req"}, "remote-addr", "REQ_REMOTE_ADDR"},
		{[]string{"a", "b"}, "c.d", "A_B_C_D"},
	}
	for _, tt := range tests {
		if got := journalKey(tt.groups, tt.key); got != tt.want {
			t.Errorf("journalKey(%v, %q) = %q, want %q", tt.groups, tt.key, got, tt.want)
		}
	}
}

func TestFlattenAttr(t *testing.T) {
	fields := map[string]string{}
	flattenAttr(fields, slog.Group("driver", slog.Int("brightness", 128), slog.Bool("state", true)), nil)
	flattenAttr(fields, slog.Float64("ratio", 0.5), nil)

	want := map[string]string{
		"DRIVER_BRIGHTNESS": "128",
		"DRIVER_STATE":      "true",
		"RATIO":             "0.5",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%q] = %q, want %q", k, fields[k], v)
		}
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			switch {
			case tt.isNil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			case !tt.isNil && got == nil:
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			case !tt.isNil && *got != tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}
