// ABOUTME: Tests for settings load/save behavior
// ABOUTME: Covers defaults on missing file, round-trip, and backfill of omitted fields
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/officelog/models"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, 10*time.Second, cfg.CoalesceWindow)
	assert.Equal(t, time.Hour, cfg.Policy.ValidityThreshold)
	assert.True(t, cfg.CalendarEnabled)
}

func TestSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	cfg := Default()
	cfg.Locations = []models.OfficeLocation{
		{
			Name:         "HQ",
			Coordinate:   models.Coordinate{Latitude: 41.8781, Longitude: -87.6298},
			RadiusMeters: 150,
		},
	}
	cfg.CalendarID = "work@example.com"
	cfg.EntryGraceDelay = 5 * time.Second
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	require.Len(t, loaded.Locations, 1)
	assert.Equal(t, "HQ", loaded.Locations[0].Name)
	assert.Equal(t, "work@example.com", loaded.CalendarID)
	assert.Equal(t, 5*time.Second, loaded.EntryGraceDelay)
}

func TestLoadFrom_BackfillsOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	// Hand-edited config with only a location.
	raw := `{"locations":[{"name":"HQ","coordinate":{"latitude":1,"longitude":2},"radius_meters":100}],"calendar_enabled":true}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.CalendarID)
	assert.Equal(t, 30, cfg.SweepLookBackDays)
	assert.Equal(t, 60*time.Second, cfg.CoalesceMaxWait)
	assert.NotEmpty(t, cfg.Policy.TrackingDays)
}

func TestLoadFrom_InvalidJSONReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, Default().ReconcileInterval, cfg.ReconcileInterval)
}
