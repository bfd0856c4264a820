// ABOUTME: Settings store for locations, tracking policy, and sync tuning
// ABOUTME: Loads/saves JSON config at XDG path with defaults on missing fields
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/harperreed/officelog/models"
)

const (
	// AppName is the application name used for XDG data/config paths.
	AppName = "officelog"

	// ConfigFileName is where settings are stored under the config dir.
	ConfigFileName = "settings.json"
)

// Settings holds everything the tracker needs to run: the configured
// geofences, the tracking policy, calendar wiring, and timing knobs for
// the reconciler and the sync engine.
type Settings struct {
	Locations []models.OfficeLocation `json:"locations"`
	Policy    models.TrackingPolicy   `json:"policy"`

	// CalendarEnabled gates all backend writes. Visits are still
	// recorded locally when false.
	CalendarEnabled bool `json:"calendar_enabled"`

	// CalendarID is the backend calendar to mirror visits into.
	CalendarID string `json:"calendar_id,omitempty"`

	// ReconcileInterval is how often the drift reconciler samples position.
	ReconcileInterval time.Duration `json:"reconcile_interval"`

	// SampleTimeout bounds a single position sample request.
	SampleTimeout time.Duration `json:"sample_timeout"`

	// EntryGraceDelay is how long the reconciler waits before correcting
	// a missed entry, giving the primary signal a chance to land first.
	EntryGraceDelay time.Duration `json:"entry_grace_delay"`

	// CoalesceWindow is the sync engine's burst-collapsing timer.
	CoalesceWindow time.Duration `json:"coalesce_window"`

	// CoalesceMaxWait bounds how long a steady update stream can defer
	// a drain.
	CoalesceMaxWait time.Duration `json:"coalesce_max_wait"`

	// SweepLookBackDays/SweepLookAheadDays bound the duplicate sweep window.
	SweepLookBackDays  int `json:"sweep_look_back_days"`
	SweepLookAheadDays int `json:"sweep_look_ahead_days"`

	// SweepSchedule is a cron expression for the daemon's periodic sweep.
	SweepSchedule string `json:"sweep_schedule"`
}

// Default returns settings with the stock tuning constants.
func Default() *Settings {
	return &Settings{
		Policy:             models.DefaultPolicy(),
		CalendarEnabled:    true,
		CalendarID:         "primary",
		ReconcileInterval:  5 * time.Minute,
		SampleTimeout:      30 * time.Second,
		EntryGraceDelay:    2 * time.Second,
		CoalesceWindow:     10 * time.Second,
		CoalesceMaxWait:    60 * time.Second,
		SweepLookBackDays:  30,
		SweepLookAheadDays: 7,
		SweepSchedule:      "0 3 * * *",
	}
}

// Path returns the settings file location, creating the directory.
func Path() (string, error) {
	dir := filepath.Join(xdg.ConfigHome, AppName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// DataDir returns the XDG data directory for databases and tokens.
func DataDir() (string, error) {
	dir := filepath.Join(xdg.DataHome, AppName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// Load reads settings from disk, falling back to defaults when the file
// is missing or unreadable.
func Load() (*Settings, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil //nolint:nilerr // defaults when path unavailable
	}
	return LoadFrom(path)
}

// LoadFrom reads settings from an explicit path.
func LoadFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return Default(), nil //nolint:nilerr // defaults on parse error
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Save persists the settings to the default path with 0600 permissions.
func (s *Settings) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return s.SaveTo(path)
}

// SaveTo persists the settings to an explicit path.
func (s *Settings) SaveTo(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// applyDefaults backfills zero-valued tuning fields so a hand-edited
// config can omit them.
func applyDefaults(s *Settings) {
	d := Default()
	if s.ReconcileInterval == 0 {
		s.ReconcileInterval = d.ReconcileInterval
	}
	if s.SampleTimeout == 0 {
		s.SampleTimeout = d.SampleTimeout
	}
	if s.EntryGraceDelay == 0 {
		s.EntryGraceDelay = d.EntryGraceDelay
	}
	if s.CoalesceWindow == 0 {
		s.CoalesceWindow = d.CoalesceWindow
	}
	if s.CoalesceMaxWait == 0 {
		s.CoalesceMaxWait = d.CoalesceMaxWait
	}
	if s.SweepLookBackDays == 0 {
		s.SweepLookBackDays = d.SweepLookBackDays
	}
	if s.SweepLookAheadDays == 0 {
		s.SweepLookAheadDays = d.SweepLookAheadDays
	}
	if s.SweepSchedule == "" {
		s.SweepSchedule = d.SweepSchedule
	}
	if s.Policy.ValidityThreshold == 0 {
		s.Policy.ValidityThreshold = d.Policy.ValidityThreshold
	}
	if len(s.Policy.TrackingDays) == 0 {
		s.Policy.TrackingDays = d.Policy.TrackingDays
	}
	if s.CalendarID == "" {
		s.CalendarID = d.CalendarID
	}
}
