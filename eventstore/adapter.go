// ABOUTME: Event-store adapter contract over the external calendar backend
// ABOUTME: Defines the operations the sync engine and sweep depend on
package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/harperreed/officelog/models"
)

// Control field keys embedded in backend event metadata.
const (
	PropStableID = "officelog-id"
	PropChecksum = "officelog-checksum"
)

var (
	// ErrNotFound means the handle or stable ID did not resolve to a
	// live backend event.
	ErrNotFound = errors.New("event not found")

	// ErrNoAccess means the backend rejected the call for permission
	// reasons. Sync becomes a no-op until access is restored.
	ErrNoAccess = errors.New("no calendar access")
)

// Window bounds an event enumeration.
type Window struct {
	Start time.Time
	End   time.Time
}

// SweepWindow builds the bounded look-back/look-forward window around now.
func SweepWindow(now time.Time, lookBackDays, lookAheadDays int) Window {
	return Window{
		Start: now.AddDate(0, 0, -lookBackDays),
		End:   now.AddDate(0, 0, lookAheadDays),
	}
}

// EventData is the full payload written to the backend: human content
// plus the two control fields.
type EventData struct {
	StableID string
	Checksum string
	Content  models.EventContent
}

// RemoteEvent is a backend event as read back, with its handle and the
// control fields found in its metadata (empty if unrecognized).
type RemoteEvent struct {
	Handle   string
	StableID string
	Checksum string
	Content  models.EventContent
}

// Adapter is the capability boundary over the external calendar. Each
// operation is atomic from the caller's perspective; Find and List are
// eventually consistent with prior writes.
type Adapter interface {
	// Create writes a new event and returns its backend handle.
	Create(ctx context.Context, data EventData) (string, error)

	// Update overwrites the event at handle.
	Update(ctx context.Context, handle string, data EventData) error

	// Delete removes the event at handle. Deleting an already-gone
	// event returns ErrNotFound.
	Delete(ctx context.Context, handle string) error

	// Get reads the event at handle.
	Get(ctx context.Context, handle string) (*RemoteEvent, error)

	// Find returns the first live event carrying stableID inside the
	// window, or ErrNotFound.
	Find(ctx context.Context, stableID string, window Window) (*RemoteEvent, error)

	// List enumerates all events inside the window that carry a
	// recognizable stable ID marker.
	List(ctx context.Context, window Window) ([]RemoteEvent, error)

	// HasWriteAccess reports whether writes are currently permitted.
	HasWriteAccess(ctx context.Context) bool
}
