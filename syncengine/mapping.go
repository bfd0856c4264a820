// ABOUTME: Durable stableId→backend-handle mapping over the key-value store
// ABOUTME: Tracks the last-written checksum per event for tamper detection
package syncengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/officelog/kv"
)

const mappingPrefix = "map:"

// MapEntry records where a stable ID last landed in the backend and
// what checksum this system last wrote there.
type MapEntry struct {
	Handle   string `json:"handle"`
	Checksum string `json:"checksum"`
}

// EventMap is the persisted identifier mapping. All mutation happens
// from the sync engine's single drain at a time; the kv store makes
// each write atomic.
type EventMap struct {
	store *kv.Store
}

// NewEventMap wraps a key-value store.
func NewEventMap(store *kv.Store) *EventMap {
	return &EventMap{store: store}
}

func mappingKey(stableID string) []byte {
	return []byte(mappingPrefix + stableID)
}

// Put records the handle and checksum for a stable ID.
func (m *EventMap) Put(stableID, handle, checksum string) error {
	data, err := json.Marshal(MapEntry{Handle: handle, Checksum: checksum})
	if err != nil {
		return err
	}
	if err := m.store.Set(mappingKey(stableID), data); err != nil {
		return fmt.Errorf("failed to persist mapping for %s: %w", stableID, err)
	}
	return nil
}

// Lookup returns the entry for a stable ID, or nil when unmapped.
func (m *EventMap) Lookup(stableID string) (*MapEntry, error) {
	data, err := m.store.Get(mappingKey(stableID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read mapping for %s: %w", stableID, err)
	}

	var entry MapEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt mapping for %s: %w", stableID, err)
	}
	return &entry, nil
}

// Remove deletes the entry for a stable ID. Removing an absent entry
// is a no-op.
func (m *EventMap) Remove(stableID string) error {
	if err := m.store.Delete(mappingKey(stableID)); err != nil {
		return fmt.Errorf("failed to remove mapping for %s: %w", stableID, err)
	}
	return nil
}

// StableIDs returns every mapped stable ID.
func (m *EventMap) StableIDs() ([]string, error) {
	keys, err := m.store.KeysWithPrefix([]byte(mappingPrefix))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(string(k), mappingPrefix))
	}
	return ids, nil
}
