// ABOUTME: Duplicate sweep collapsing backend events that share a stable ID
// ABOUTME: Repairs the identifier mapping so each stable ID resolves to one event
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/officelog/eventstore"
	"github.com/harperreed/officelog/logx"
	"github.com/harperreed/officelog/models"
)

// Sweep enumerates backend events in the window, collapses groups
// sharing a stable ID down to their first member, and points the
// mapping at the survivor. It deletes extra copies, never the sole
// copy, so it is safe to run concurrently with normal sync cycles.
func (e *Engine) Sweep(ctx context.Context, window eventstore.Window) error {
	events, err := e.adapter.List(ctx, window)
	if err != nil {
		e.noteAccess(err)
		return fmt.Errorf("sweep enumeration failed: %w", err)
	}
	e.noteAccess(nil)

	// Group by stable ID, preserving backend return order.
	groups := make(map[string][]eventstore.RemoteEvent)
	order := make([]string, 0)
	for _, event := range events {
		if _, seen := groups[event.StableID]; !seen {
			order = append(order, event.StableID)
		}
		groups[event.StableID] = append(groups[event.StableID], event)
	}

	removed := 0
	for _, stableID := range order {
		group := groups[stableID]
		keep := group[0]

		for _, extra := range group[1:] {
			err := e.adapter.Delete(ctx, extra.Handle)
			if err != nil && !errors.Is(err, eventstore.ErrNotFound) {
				logx.Error("sweep could not delete duplicate", err,
					"stable_id", stableID, "handle", extra.Handle)
				continue
			}
			removed++
		}

		if err := e.mapping.Put(stableID, keep.Handle, keep.Checksum); err != nil {
			logx.Error("sweep could not repair mapping", err, "stable_id", stableID)
		}
	}

	if err := e.purgeStaleMappings(window, groups); err != nil {
		logx.Error("sweep could not purge stale mappings", err)
	}

	if removed > 0 {
		logx.Info("sweep collapsed duplicates", "removed", removed)
	}
	return nil
}

// purgeStaleMappings drops mapping entries whose attributed day falls
// inside the sweep window but which no longer have any backend event.
// Entries outside the window are left alone: the sweep saw nothing
// about them.
func (e *Engine) purgeStaleMappings(window eventstore.Window, groups map[string][]eventstore.RemoteEvent) error {
	ids, err := e.mapping.StableIDs()
	if err != nil {
		return err
	}

	for _, stableID := range ids {
		if _, live := groups[stableID]; live {
			continue
		}
		day, ok := dateOfStableID(stableID)
		if !ok || day.Before(window.Start) || day.After(window.End) {
			continue
		}
		if err := e.mapping.Remove(stableID); err != nil {
			return err
		}
		logx.Debug("purged stale mapping", "stable_id", stableID)
	}
	return nil
}

func dateOfStableID(stableID string) (time.Time, bool) {
	raw, found := strings.CutPrefix(stableID, "visit-")
	if !found {
		return time.Time{}, false
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
