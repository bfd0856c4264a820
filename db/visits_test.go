// ABOUTME: Tests for the visit record store
// ABOUTME: Covers the single-active invariant, finalize, delete, and range queries
package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/officelog/models"
)

func openTestStore(t *testing.T) *VisitStore {
	t.Helper()
	database, err := OpenDatabase(filepath.Join(t.TempDir(), "officelog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewVisitStore(database)
}

func TestVisitStore_InsertAndActive(t *testing.T) {
	store := openTestStore(t)

	active, err := store.Active()
	require.NoError(t, err)
	assert.Nil(t, active)

	entry := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	v := models.NewVisit(entry, models.Coordinate{Latitude: 41.8, Longitude: -87.6})
	require.NoError(t, store.Insert(v))

	active, err = store.Active()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v.ID, active.ID)
	assert.Equal(t, "2025-06-10", active.Date)
	assert.True(t, active.Active())
}

func TestVisitStore_SingleActiveInvariant(t *testing.T) {
	store := openTestStore(t)

	entry := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(models.NewVisit(entry, models.Coordinate{})))

	// A second active visit must be rejected by the partial unique index.
	err := store.Insert(models.NewVisit(entry.Add(time.Hour), models.Coordinate{}))
	assert.Error(t, err)
}

func TestVisitStore_Finalize(t *testing.T) {
	store := openTestStore(t)

	entry := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	v := models.NewVisit(entry, models.Coordinate{})
	require.NoError(t, store.Insert(v))

	exit := entry.Add(8 * time.Hour)
	require.NoError(t, store.Finalize(v.ID, exit))

	active, err := store.Active()
	require.NoError(t, err)
	assert.Nil(t, active)

	got, err := store.Get(v.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.ExitTime)
	assert.Equal(t, exit.Unix(), got.ExitTime.Unix())
	assert.True(t, got.IsValid(time.Hour))

	// A new active visit is allowed once the prior one is finalized.
	require.NoError(t, store.Insert(models.NewVisit(entry.Add(24*time.Hour), models.Coordinate{})))
}

func TestVisitStore_FinalizeMissing(t *testing.T) {
	store := openTestStore(t)

	v := models.NewVisit(time.Now(), models.Coordinate{})
	err := store.Finalize(v.ID, time.Now())
	assert.Error(t, err)
}

func TestVisitStore_Delete(t *testing.T) {
	store := openTestStore(t)

	v := models.NewVisit(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), models.Coordinate{})
	require.NoError(t, store.Insert(v))
	require.NoError(t, store.Delete(v.ID))

	got, err := store.Get(v.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting twice is a no-op.
	require.NoError(t, store.Delete(v.ID))
}

func TestVisitStore_ByDateRange(t *testing.T) {
	store := openTestStore(t)

	for day := 10; day <= 13; day++ {
		entry := time.Date(2025, 6, day, 9, 0, 0, 0, time.UTC)
		v := models.NewVisit(entry, models.Coordinate{})
		exit := entry.Add(8 * time.Hour)
		v.ExitTime = &exit
		require.NoError(t, store.Insert(v))
	}

	visits, err := store.ByDateRange("2025-06-11", "2025-06-12")
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "2025-06-11", visits[0].Date)
	assert.Equal(t, "2025-06-12", visits[1].Date)

	byDay, err := store.ByDate("2025-06-10")
	require.NoError(t, err)
	require.Len(t, byDay, 1)
}
