package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/kbdlight/cmd"
	"github.com/smazurov/kbdlight/internal/config"
	"github.com/smazurov/kbdlight/internal/logging"
	"github.com/smazurov/kbdlight/internal/version"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:"127.0.0.1:8091" toml:"server.port" env:"SERVER_PORT"`

	// Driver settings
	DriverRoot         string `help:"Keyboard driver sysfs directory" default:"/sys/devices/platform/tuxedo_keyboard" toml:"driver.root" env:"DRIVER_ROOT"`
	DriverPollInterval string `help:"Driver polling interval" default:"1s" toml:"driver.poll_interval" env:"DRIVER_POLL_INTERVAL"`
	DriverHotplug      bool   `help:"Follow driver load and unload through uevents" default:"true" toml:"driver.hotplug" env:"DRIVER_HOTPLUG"`

	// Settings file
	SettingsFile string `help:"Persisted user settings" default:"settings.toml" toml:"settings.file" env:"SETTINGS_FILE"`

	// Screensaver settings
	ScreensaverBacklightDir string `help:"Backlight class directory" default:"/sys/class/backlight" toml:"screensaver.backlight_dir" env:"SCREENSAVER_BACKLIGHT_DIR"`

	// Suspend settings
	SuspendGap    string `help:"Wall clock jump treated as a resume" default:"3.5s" toml:"suspend.gap" env:"SUSPEND_GAP"`
	SuspendLogind bool   `help:"Listen for logind sleep signals" default:"true" toml:"suspend.logind" env:"SUSPEND_LOGIND"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Observability settings
	MetricsEnabled bool `help:"Serve Prometheus metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel       string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat      string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingFile        string `help:"Also write logs to this file" default:"" toml:"logging.file" env:"LOGGING_FILE"`
	LoggingKeyboard    string `help:"Keyboard logging level" default:"info" toml:"logging.keyboard" env:"LOGGING_KEYBOARD"`
	LoggingSysfswatch  string `help:"Sysfs watcher logging level" default:"info" toml:"logging.sysfswatch" env:"LOGGING_SYSFSWATCH"`
	LoggingScreensaver string `help:"Screensaver logging level" default:"info" toml:"logging.screensaver" env:"LOGGING_SCREENSAVER"`
	LoggingSuspend     string `help:"Suspend detector logging level" default:"info" toml:"logging.suspend" env:"LOGGING_SUSPEND"`
	LoggingAPI         string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	var root *cobra.Command

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, root); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Module levels set only in the config file still apply
		loggingConfig := config.LoadLoggingConfig(opts.Config)
		loggingConfig.Level = opts.LoggingLevel
		loggingConfig.Format = opts.LoggingFormat
		loggingConfig.File = opts.LoggingFile
		for module, level := range map[string]string{
			"keyboard":    opts.LoggingKeyboard,
			"sysfswatch":  opts.LoggingSysfswatch,
			"screensaver": opts.LoggingScreensaver,
			"suspend":     opts.LoggingSuspend,
			"api":         opts.LoggingAPI,
		} {
			loggingConfig.Modules[module] = level
		}
		if initErr := logging.Initialize(loggingConfig); initErr != nil {
			slog.Warn("Failed to initialize logging", "error", initErr)
		}

		logger := logging.GetLogger("main")
		d := newDaemon(opts, logger)

		hooks.OnStart(func() {
			logger.Info("Starting kbdlight", "version", version.String())
			if startErr := d.run(); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Daemon failed", "error", startErr)
				d.stop()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			d.stop()
		})
	})

	root = cli.Root()
	root.Use = "kbdlight"
	root.Short = "Keyboard backlight daemon for Clevo/Tuxedo laptops"
	root.Version = version.String()

	root.AddCommand(cmd.CreateGetCmd())
	root.AddCommand(cmd.CreateSetCmd())
	root.AddCommand(cmd.CreateWatchCmd())

	cli.Run()
}
