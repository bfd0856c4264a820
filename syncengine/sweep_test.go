// ABOUTME: Tests for the duplicate sweep
// ABOUTME: Covers convergence to one event per stable ID and mapping repair
package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/officelog/eventstore"
	"github.com/harperreed/officelog/models"
)

func sweepWindowFor(day string) eventstore.Window {
	t, _ := time.Parse(models.DateLayout, day)
	return eventstore.SweepWindow(t, 30, 7)
}

func TestSweep_CollapsesDuplicates(t *testing.T) {
	// Events sharing a stable ID converge to exactly one survivor.
	engine, adapter, mapping := newTestEngine(t)
	ctx := context.Background()

	content := testContent("2025-06-10", 8)
	checksum := Checksum(content)
	data := eventstore.EventData{StableID: "visit-2025-06-10", Checksum: checksum, Content: content}

	// A retried create double-wrote before the mapping was durable.
	kept := adapter.Seed(data)
	adapter.Seed(data)
	adapter.Seed(data)
	require.Equal(t, 3, adapter.EventCount())

	require.NoError(t, engine.Sweep(ctx, sweepWindowFor("2025-06-10")))

	assert.Equal(t, 1, adapter.EventCount())
	entry, err := mapping.Lookup("visit-2025-06-10")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, kept, entry.Handle)

	remote, err := adapter.Get(ctx, entry.Handle)
	require.NoError(t, err)
	assert.Equal(t, "visit-2025-06-10", remote.StableID)
}

func TestSweep_SingleEventUntouched(t *testing.T) {
	engine, adapter, mapping := newTestEngine(t)
	ctx := context.Background()

	content := testContent("2025-06-10", 8)
	handle := adapter.Seed(eventstore.EventData{
		StableID: "visit-2025-06-10",
		Checksum: Checksum(content),
		Content:  content,
	})

	require.NoError(t, engine.Sweep(ctx, sweepWindowFor("2025-06-10")))

	// Never deletes the sole copy; repairs the missing mapping.
	assert.Equal(t, 1, adapter.EventCount())
	entry, err := mapping.Lookup("visit-2025-06-10")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, handle, entry.Handle)
}

func TestSweep_Idempotent(t *testing.T) {
	engine, adapter, _ := newTestEngine(t)
	ctx := context.Background()

	content := testContent("2025-06-10", 8)
	data := eventstore.EventData{StableID: "visit-2025-06-10", Checksum: Checksum(content), Content: content}
	adapter.Seed(data)
	adapter.Seed(data)

	window := sweepWindowFor("2025-06-10")
	require.NoError(t, engine.Sweep(ctx, window))
	require.NoError(t, engine.Sweep(ctx, window))

	assert.Equal(t, 1, adapter.EventCount())
}

func TestSweep_MultipleStableIDs(t *testing.T) {
	engine, adapter, mapping := newTestEngine(t)
	ctx := context.Background()

	for _, day := range []string{"2025-06-09", "2025-06-10"} {
		content := testContent(day, 8)
		data := eventstore.EventData{
			StableID: models.StableIDForDate(day),
			Checksum: Checksum(content),
			Content:  content,
		}
		adapter.Seed(data)
		adapter.Seed(data)
	}

	require.NoError(t, engine.Sweep(ctx, sweepWindowFor("2025-06-10")))

	assert.Equal(t, 2, adapter.EventCount())
	for _, day := range []string{"2025-06-09", "2025-06-10"} {
		entry, err := mapping.Lookup(models.StableIDForDate(day))
		require.NoError(t, err)
		assert.NotNil(t, entry)
	}
}

func TestSweep_PurgesStaleMappingInWindow(t *testing.T) {
	engine, _, mapping := newTestEngine(t)
	ctx := context.Background()

	// Mapped but gone from the backend, inside the window.
	require.NoError(t, mapping.Put("visit-2025-06-09", "evt-gone", "deadbeef"))
	// Outside the window: must be left alone.
	require.NoError(t, mapping.Put("visit-2020-01-01", "evt-old", "cafef00d"))

	require.NoError(t, engine.Sweep(ctx, sweepWindowFor("2025-06-10")))

	inWindow, err := mapping.Lookup("visit-2025-06-09")
	require.NoError(t, err)
	assert.Nil(t, inWindow)

	outside, err := mapping.Lookup("visit-2020-01-01")
	require.NoError(t, err)
	assert.NotNil(t, outside)
}

func TestSweep_SkipsEventsWithoutMarker(t *testing.T) {
	engine, adapter, _ := newTestEngine(t)
	ctx := context.Background()

	// A user's unrelated event carries no stable ID and is invisible
	// to the sweep.
	adapter.Seed(eventstore.EventData{Content: testContent("2025-06-10", 1)})

	require.NoError(t, engine.Sweep(ctx, sweepWindowFor("2025-06-10")))
	assert.Equal(t, 1, adapter.EventCount())
}
