// ABOUTME: Tests for presence data models
// ABOUTME: Covers visit validity, stable IDs, geofences, and policy guards
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisit_IsValid(t *testing.T) {
	entry := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		exit     *time.Time
		expected bool
	}{
		{
			name:     "active visit is never valid",
			exit:     nil,
			expected: false,
		},
		{
			name:     "45 minutes is below threshold",
			exit:     timePtr(entry.Add(45 * time.Minute)),
			expected: false,
		},
		{
			name:     "exactly one hour passes",
			exit:     timePtr(entry.Add(time.Hour)),
			expected: true,
		},
		{
			name:     "full work day passes",
			exit:     timePtr(entry.Add(8 * time.Hour)),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVisit(entry, Coordinate{})
			v.ExitTime = tt.exit
			assert.Equal(t, tt.expected, v.IsValid(time.Hour))
		})
	}
}

func TestVisit_StableID(t *testing.T) {
	entry := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	v := NewVisit(entry, Coordinate{})

	assert.Equal(t, "visit-2025-06-10", v.StableID())

	// Same day, different times, same ID.
	later := NewVisit(entry.Add(3*time.Hour), Coordinate{})
	assert.Equal(t, v.StableID(), later.StableID())
}

func TestVisit_Duration(t *testing.T) {
	entry := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	v := NewVisit(entry, Coordinate{})

	// Active visit measures against now.
	now := entry.Add(90 * time.Minute)
	assert.Equal(t, 90*time.Minute, v.Duration(now))

	exit := entry.Add(8 * time.Hour)
	v.ExitTime = &exit
	assert.Equal(t, 8*time.Hour, v.Duration(now))
}

func TestCoordinate_DistanceTo(t *testing.T) {
	chicago := Coordinate{Latitude: 41.8781, Longitude: -87.6298}
	milwaukee := Coordinate{Latitude: 43.0389, Longitude: -87.9065}

	d := chicago.DistanceTo(milwaukee)
	// Roughly 131 km between the two city centers.
	assert.InDelta(t, 131000, d, 5000)

	assert.Zero(t, chicago.DistanceTo(chicago))
}

func TestOfficeLocation_Contains(t *testing.T) {
	office := OfficeLocation{
		Name:         "HQ",
		Coordinate:   Coordinate{Latitude: 41.8781, Longitude: -87.6298},
		RadiusMeters: 150,
	}

	assert.True(t, office.Contains(office.Coordinate))

	// ~100m north is inside a 150m fence.
	nearby := Coordinate{Latitude: 41.8790, Longitude: -87.6298}
	assert.True(t, office.Contains(nearby))

	// A different neighborhood is not.
	far := Coordinate{Latitude: 41.9000, Longitude: -87.6298}
	assert.False(t, office.Contains(far))
}

func TestTrackingPolicy_AcceptsEntry(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		at       time.Time
		expected bool
	}{
		{
			name:     "tuesday morning inside hours",
			at:       time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
			expected: true,
		},
		{
			name:     "flexibility admits 8am",
			at:       time.Date(2025, 6, 10, 8, 15, 0, 0, time.UTC),
			expected: true,
		},
		{
			name:     "flexibility admits 6pm",
			at:       time.Date(2025, 6, 10, 18, 30, 0, 0, time.UTC),
			expected: true,
		},
		{
			name:     "too early",
			at:       time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "too late",
			at:       time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "saturday is not a tracking day",
			at:       time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.AcceptsEntry(tt.at))
		})
	}
}

func TestNewPendingUpdate_OrderedIDs(t *testing.T) {
	a := NewPendingUpdate("visit-2025-06-10", OpCreate, EventContent{})
	b := NewPendingUpdate("visit-2025-06-10", OpUpdate, EventContent{})

	// ULIDs from the same process are monotonic within a millisecond.
	require.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.ID.Compare(b.ID) < 0)
}

func TestContentForVisit(t *testing.T) {
	entry := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	v := NewVisit(entry, Coordinate{})

	// Ongoing visit extends its provisional end to now.
	now := entry.Add(3 * time.Hour)
	content := ContentForVisit(v, "HQ", now)
	assert.Equal(t, "Office: HQ", content.Title)
	assert.Equal(t, entry, content.Start)
	assert.Equal(t, now, content.End)
	assert.False(t, content.AllDay)

	// Finished visit uses the recorded exit.
	exit := entry.Add(8 * time.Hour)
	v.ExitTime = &exit
	content = ContentForVisit(v, "HQ", now)
	assert.Equal(t, exit, content.End)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
