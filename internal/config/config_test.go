package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// daemonConfig mirrors the shape of the daemon's option struct.
type daemonConfig struct {
	Config string `help:"Config file path"`

	Port               string        `toml:"server.port" env:"PORT"`
	DriverRoot         string        `toml:"driver.root" env:"DRIVER_ROOT"`
	DriverPollInterval time.Duration `toml:"driver.poll_interval" env:"DRIVER_POLL_INTERVAL"`
	SuspendGap         time.Duration `toml:"suspend.gap" env:"SUSPEND_GAP"`
	SuspendLogind      bool          `toml:"suspend.logind" env:"SUSPEND_LOGIND"`
	MaxClients         int           `toml:"server.max_clients" env:"MAX_CLIENTS"`
	Ratio              float64       `toml:"server.ratio" env:"RATIO"`
	Backlights         []string      `toml:"screensaver.devices" env:"BACKLIGHTS"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kbdlight.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9090"
max_clients = 4
ratio = 2

[driver]
root = "/sys/devices/platform/clevo_keyboard"
poll_interval = "250ms"

[suspend]
gap = 5
logind = false

[screensaver]
devices = ["intel_backlight", "acpi_video0"]
`)

	config := &daemonConfig{Config: path, SuspendLogind: true}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := &daemonConfig{
		Config:             path,
		Port:               ":9090",
		DriverRoot:         "/sys/devices/platform/clevo_keyboard",
		DriverPollInterval: 250 * time.Millisecond,
		SuspendGap:         5 * time.Second,
		SuspendLogind:      false,
		MaxClients:         4,
		Ratio:              2,
		Backlights:         []string{"intel_backlight", "acpi_video0"},
	}
	if !reflect.DeepEqual(config, want) {
		t.Errorf("LoadConfig =\n%+v\nwant\n%+v", config, want)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("KBDLIGHT_PORT", ":7000")
	t.Setenv("KBDLIGHT_DRIVER_POLL_INTERVAL", "2s")
	t.Setenv("KBDLIGHT_SUSPEND_LOGIND", "false")
	t.Setenv("KBDLIGHT_MAX_CLIENTS", "12")
	t.Setenv("KBDLIGHT_RATIO", "0.25")
	t.Setenv("KBDLIGHT_BACKLIGHTS", " a , b ")

	config := &daemonConfig{SuspendLogind: true}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != ":7000" {
		t.Errorf("Port = %q, want :7000", config.Port)
	}
	if config.DriverPollInterval != 2*time.Second {
		t.Errorf("DriverPollInterval = %v, want 2s", config.DriverPollInterval)
	}
	if config.SuspendLogind {
		t.Error("SuspendLogind should be false")
	}
	if config.MaxClients != 12 {
		t.Errorf("MaxClients = %d, want 12", config.MaxClients)
	}
	if config.Ratio != 0.25 {
		t.Errorf("Ratio = %v, want 0.25", config.Ratio)
	}
	if !reflect.DeepEqual(config.Backlights, []string{"a", "b"}) {
		t.Errorf("Backlights = %v", config.Backlights)
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9090"

[driver]
root = "/toml/root"
`)
	t.Setenv("KBDLIGHT_PORT", ":7000")

	config := &daemonConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != ":7000" {
		t.Errorf("Port = %q, want env value :7000", config.Port)
	}
	if config.DriverRoot != "/toml/root" {
		t.Errorf("DriverRoot = %q, want TOML value", config.DriverRoot)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9090"

[driver]
root = "/toml/root"
`)
	t.Setenv("KBDLIGHT_DRIVER_ROOT", "/env/root")

	config := &daemonConfig{Config: path}
	cmd := &cobra.Command{Use: "kbdlight"}
	cmd.Flags().StringVar(&config.Port, "port", ":8090", "")
	cmd.Flags().StringVar(&config.DriverRoot, "driver-root", "", "")
	if err := cmd.Flags().Parse([]string{"--port", ":1234", "--driver-root", "/cli/root"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(config, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != ":1234" {
		t.Errorf("Port = %q, want CLI value", config.Port)
	}
	if config.DriverRoot != "/cli/root" {
		t.Errorf("DriverRoot = %q, want CLI value", config.DriverRoot)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{name: "duration env", env: map[string]string{"KBDLIGHT_SUSPEND_GAP": "soon"}},
		{name: "bool env", env: map[string]string{"KBDLIGHT_SUSPEND_LOGIND": "maybe"}},
		{name: "string as int", toml: "[server]\nmax_clients = \"four\"\n"},
		{name: "bool as duration", toml: "[driver]\npoll_interval = true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			config := &daemonConfig{}
			if tt.toml != "" {
				config.Config = writeConfig(t, tt.toml)
			}
			if err := LoadConfig(config, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"driver": map[string]any{
			"sysfs": map[string]any{
				"root": "/sys/x",
			},
			"poll_interval": "1s",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"driver.poll_interval", "1s"},
		{"driver.sysfs.root", "/sys/x"},
		{"nonexistent", nil},
		{"driver.nonexistent", nil},
		{"root.child", nil},
	}

	for _, test := range tests {
		if result := getNestedValue(data, test.path); result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":               "port",
		"DriverPollInterval": "driver-poll-interval",
		"LoggingLevel":       "logging-level",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config := &daemonConfig{Config: filepath.Join(t.TempDir(), "nonexistent.toml")}

	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	config := &daemonConfig{Config: writeConfig(t, "[server\ninvalid toml syntax\n")}

	if err := LoadConfig(config, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
file = "/var/log/kbdlight.log"
api = "error"

[logging.modules]
sysfswatch = "debug"
keyboard = "info"
`)

	cfg := LoadLoggingConfig(path)

	if cfg.Level != "warn" || cfg.Format != "json" || cfg.File != "/var/log/kbdlight.log" {
		t.Errorf("unexpected top-level values: %+v", cfg)
	}
	want := map[string]string{"sysfswatch": "debug", "keyboard": "info", "api": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.toml"), writeConfig(t, "[logging\n")} {
		cfg := LoadLoggingConfig(path)
		if cfg.Level != "info" || cfg.Format != "text" || len(cfg.Modules) != 0 {
			t.Errorf("LoadLoggingConfig(%q) = %+v, want defaults", path, cfg)
		}
	}
}
