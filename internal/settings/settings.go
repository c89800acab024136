// Package settings persists user preferences and the saved keyboard state
// in a TOML file.
package settings

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

const currentVersion = 1

// Settings is the persisted preference set.
type Settings struct {
	Version             int               `toml:"version" json:"-"`
	RestoreOnStart      bool              `toml:"restore_on_start" json:"restore_on_start" doc:"Apply the saved driver state when the daemon starts"`
	RestoreOnResume     bool              `toml:"restore_on_resume" json:"restore_on_resume" doc:"Apply the saved driver state after resume from suspend"`
	LEDOffOnScreensaver bool              `toml:"led_off_on_screensaver" json:"led_off_on_screensaver" doc:"Turn the backlight off while the screen is powered down"`
	DriverState         map[string]string `toml:"driver_state,omitempty" json:"driver_state,omitempty" doc:"Saved attribute values keyed by role name"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{
		Version:             currentVersion,
		RestoreOnStart:      true,
		RestoreOnResume:     true,
		LEDOffOnScreensaver: true,
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.DriverState = maps.Clone(s.DriverState)
	return s
}

// Equal reports whether s and o hold the same values.
func (s Settings) Equal(o Settings) bool {
	return s.Version == o.Version &&
		s.RestoreOnStart == o.RestoreOnStart &&
		s.RestoreOnResume == o.RestoreOnResume &&
		s.LEDOffOnScreensaver == o.LEDOffOnScreensaver &&
		maps.Equal(s.DriverState, o.DriverState)
}

// Load reads a settings file. Keys missing from the file keep their defaults.
// A missing file yields Defaults and no error.
func Load(path string) (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := toml.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if s.Version == 0 {
		s.Version = currentVersion
	}
	return s, nil
}

// Store is the in-memory copy of the settings file. All methods are safe for
// concurrent use.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// NewStore creates a store for path holding Defaults until Load is called.
func NewStore(path string) *Store {
	if path == "" {
		path = "settings.toml"
	}
	return &Store{path: path, current: Defaults()}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory settings with the file contents.
func (s *Store) Load() error {
	loaded, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update applies fn to the settings and saves the result. The in-memory copy
// is only replaced when the save succeeded.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	fn(&next)
	if err := s.write(next); err != nil {
		return s.current.Clone(), err
	}
	s.current = next
	return next.Clone(), nil
}

// SetDriverState stores state as the saved driver snapshot.
func (s *Store) SetDriverState(state map[string]string) error {
	_, err := s.Update(func(st *Settings) {
		st.DriverState = maps.Clone(state)
	})
	return err
}

// Replace swaps in settings read elsewhere, typically after the file was
// edited by hand, without writing them back. It reports whether anything
// changed; the daemon's own saves come back unchanged.
func (s *Store) Replace(next Settings) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Equal(next) {
		return false
	}
	s.current = next.Clone()
	return true
}

// write saves atomically through a temp file in the same directory.
func (s *Store) write(st Settings) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
