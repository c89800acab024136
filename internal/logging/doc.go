// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout when something is attached to it, to the systemd
// journal when journald is running, and to an append-only file when
// Config.File is set. Every logger carries a "module" attribute.
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"sysfswatch": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("keyboard")
//	logger.Info("Applied state", "brightness", 128)
//
// Module levels can be changed at runtime with SetModuleLevel; loggers that
// were handed out earlier follow the change.
//
// Journal entries are tagged with SYSLOG_IDENTIFIER=kbdlight:
//
//	journalctl -t kbdlight -f
//	journalctl -t kbdlight MODULE=sysfswatch
//
// Modules used by the daemon: main, sysfswatch, keyboard, screensaver,
// suspend, settings, hotplug, api, http.
package logging
