// ABOUTME: Tests for the file-based position sampler
// ABOUTME: Covers fresh fixes, stale rejection, and missing/corrupt files
package reconciler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFix(t *testing.T, path string, lat, lng float64, at time.Time) {
	t.Helper()
	data, err := json.Marshal(positionFix{Latitude: lat, Longitude: lng, Timestamp: at})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func TestFileSampler_FreshFix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position.json")
	now := time.Now()
	writeFix(t, path, 41.8781, -87.6298, now)

	s := NewFileSampler(path, 10*time.Minute)
	pos, err := s.SamplePosition(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 41.8781, pos.Latitude, 1e-9)
	assert.InDelta(t, -87.6298, pos.Longitude, 1e-9)
}

func TestFileSampler_StaleFixRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position.json")
	writeFix(t, path, 41.8781, -87.6298, time.Now().Add(-time.Hour))

	s := NewFileSampler(path, 10*time.Minute)
	_, err := s.SamplePosition(context.Background())
	assert.Error(t, err)
}

func TestFileSampler_MissingFile(t *testing.T) {
	s := NewFileSampler(filepath.Join(t.TempDir(), "nope.json"), time.Minute)
	_, err := s.SamplePosition(context.Background())
	assert.Error(t, err)
}

func TestFileSampler_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0600))

	s := NewFileSampler(path, time.Minute)
	_, err := s.SamplePosition(context.Background())
	assert.Error(t, err)
}
