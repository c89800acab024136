package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is the subset of *slog.Logger that leaf packages depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	logFile         io.WriteCloser
	mutex           sync.RWMutex
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	File    string            `toml:"file"`
	Modules map[string]string `toml:"modules"`
}

// Initialize sets up the logging system. Loggers handed out earlier pick up
// the new levels but keep the outputs they were created with.
func Initialize(config Config) error {
	mutex.Lock()
	defer mutex.Unlock()

	var openErr error
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	if config.File != "" {
		f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			openErr = fmt.Errorf("failed to open log file: %w", err)
		} else {
			logFile = f
		}
	}

	globalConfig = config
	isInitialized = true

	globalLevelVar.Set(levelOrDefault(config.Level, slog.LevelInfo))

	// Existing loggers stay cached; only their levels move
	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module))
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
	return openErr
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	if isInitialized {
		levelVar.Set(moduleLevel(module))
		format = globalConfig.Format
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	logger := slog.New(createHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetModuleLevel changes a module's level at runtime.
func SetModuleLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}

	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	moduleLevelVars[module].Set(*parsed)
	return true
}

// moduleLevel resolves the configured level for module. Caller holds mutex.
func moduleLevel(module string) slog.Level {
	level := levelOrDefault(globalConfig.Level, slog.LevelInfo)
	if levelStr, ok := globalConfig.Modules[module]; ok {
		level = levelOrDefault(levelStr, level)
	}
	return level
}

// createHandler builds the handler chain: stdout when connected, the systemd
// journal when available, and the log file when configured. Caller holds mutex.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	stdoutHandler := newFormatHandler(os.Stdout, format, opts)

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdoutHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	if logFile != nil {
		handlers = append(handlers, newFormatHandler(logFile, format, opts))
	}

	switch len(handlers) {
	case 0:
		return stdoutHandler
	case 1:
		return handlers[0]
	default:
		return newFanout(handlers...)
	}
}

func newFormatHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	// /dev/null shows up as a device and is skipped
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

func levelOrDefault(level string, fallback slog.Level) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return fallback
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
