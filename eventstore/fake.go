// ABOUTME: In-memory event-store adapter for tests and dry runs
// ABOUTME: Supports failure injection, tampering, and duplicate seeding
package eventstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FakeAdapter is an in-memory Adapter. It is deliberately not confined
// to test files so dry-run mode can use it too.
type FakeAdapter struct {
	mu          sync.Mutex
	events      map[string]*RemoteEvent
	nextHandle  int
	writeAccess bool
	failNext    map[string]error

	// Call counters for assertions.
	CreateCalls int
	UpdateCalls int
	DeleteCalls int
}

// NewFakeAdapter returns an empty fake with write access granted.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		events:      make(map[string]*RemoteEvent),
		writeAccess: true,
		failNext:    make(map[string]error),
	}
}

// FailNext makes the next call of op ("create", "update", "delete",
// "get", "find", "list") return err.
func (f *FakeAdapter) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext[op] = err
}

// SetWriteAccess toggles the permission flag.
func (f *FakeAdapter) SetWriteAccess(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeAccess = ok
}

func (f *FakeAdapter) takeFailure(op string) error {
	if err, ok := f.failNext[op]; ok {
		delete(f.failNext, op)
		return err
	}
	return nil
}

// Create writes a new event and returns its handle.
func (f *FakeAdapter) Create(ctx context.Context, data EventData) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++

	if err := f.takeFailure("create"); err != nil {
		return "", err
	}
	if !f.writeAccess {
		return "", ErrNoAccess
	}

	f.nextHandle++
	handle := fmt.Sprintf("evt-%d", f.nextHandle)
	f.events[handle] = &RemoteEvent{
		Handle:   handle,
		StableID: data.StableID,
		Checksum: data.Checksum,
		Content:  data.Content,
	}
	return handle, nil
}

// Update overwrites the event at handle.
func (f *FakeAdapter) Update(ctx context.Context, handle string, data EventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++

	if err := f.takeFailure("update"); err != nil {
		return err
	}
	if !f.writeAccess {
		return ErrNoAccess
	}
	if _, ok := f.events[handle]; !ok {
		return ErrNotFound
	}

	f.events[handle] = &RemoteEvent{
		Handle:   handle,
		StableID: data.StableID,
		Checksum: data.Checksum,
		Content:  data.Content,
	}
	return nil
}

// Delete removes the event at handle.
func (f *FakeAdapter) Delete(ctx context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++

	if err := f.takeFailure("delete"); err != nil {
		return err
	}
	if !f.writeAccess {
		return ErrNoAccess
	}
	if _, ok := f.events[handle]; !ok {
		return ErrNotFound
	}
	delete(f.events, handle)
	return nil
}

// Get reads the event at handle.
func (f *FakeAdapter) Get(ctx context.Context, handle string) (*RemoteEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("get"); err != nil {
		return nil, err
	}

	event, ok := f.events[handle]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *event
	return &copied, nil
}

// Find returns the first event carrying stableID, in handle order.
func (f *FakeAdapter) Find(ctx context.Context, stableID string, window Window) (*RemoteEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("find"); err != nil {
		return nil, err
	}

	for _, handle := range f.sortedHandles() {
		if f.events[handle].StableID == stableID {
			copied := *f.events[handle]
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// List enumerates all events carrying a stable ID marker.
func (f *FakeAdapter) List(ctx context.Context, window Window) ([]RemoteEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure("list"); err != nil {
		return nil, err
	}

	var out []RemoteEvent
	for _, handle := range f.sortedHandles() {
		event := f.events[handle]
		if event.StableID == "" {
			continue
		}
		out = append(out, *event)
	}
	return out, nil
}

// HasWriteAccess reports the permission flag.
func (f *FakeAdapter) HasWriteAccess(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeAccess
}

// Tamper simulates an external edit: it changes the event's title
// without refreshing the stored checksum the way this system would.
func (f *FakeAdapter) Tamper(handle, newTitle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[handle]; ok {
		event.Content.Title = newTitle
	}
}

// Seed inserts an event directly, bypassing permission and failure
// hooks. Used to stage duplicates for sweep tests.
func (f *FakeAdapter) Seed(data EventData) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextHandle++
	handle := fmt.Sprintf("evt-%d", f.nextHandle)
	f.events[handle] = &RemoteEvent{
		Handle:   handle,
		StableID: data.StableID,
		Checksum: data.Checksum,
		Content:  data.Content,
	}
	return handle
}

// EventCount returns the number of live events.
func (f *FakeAdapter) EventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *FakeAdapter) sortedHandles() []string {
	handles := make([]string, 0, len(f.events))
	for h := range f.events {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool {
		// Numeric suffix order so "first returned" is deterministic.
		return len(handles[i]) < len(handles[j]) ||
			(len(handles[i]) == len(handles[j]) && handles[i] < handles[j])
	})
	return handles
}
