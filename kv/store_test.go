// ABOUTME: Tests for the BadgerDB key-value wrapper
// ABOUTME: Covers get/set/delete, atomic update, and prefix scans
package kv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetSetDelete(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get([]byte("missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set([]byte("k"), []byte("v1")))
	got, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, s.Set([]byte("k"), []byte("v2")))
	got, err = s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Delete([]byte("k")))
	_, err = s.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine.
	require.NoError(t, s.Delete([]byte("k")))
}

func TestStore_Update(t *testing.T) {
	s := openTestStore(t)

	// Update on an absent key sees nil.
	err := s.Update([]byte("counter"), func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte("1"), nil
	})
	require.NoError(t, err)

	// Update sees the prior value.
	err = s.Update([]byte("counter"), func(current []byte) ([]byte, error) {
		assert.Equal(t, []byte("1"), current)
		return []byte("2"), nil
	})
	require.NoError(t, err)

	got, err := s.Get([]byte("counter"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	// Returning nil deletes the key.
	err = s.Update([]byte("counter"), func(current []byte) ([]byte, error) {
		return nil, nil
	})
	require.NoError(t, err)
	_, err = s.Get([]byte("counter"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set([]byte("k"), []byte("v")))

	err := s.Update([]byte("k"), func(current []byte) ([]byte, error) {
		return nil, fmt.Errorf("boom")
	})
	assert.Error(t, err)

	// Value untouched on error.
	got, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestStore_KeysWithPrefix(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set([]byte("map:visit-2025-06-10"), []byte("a")))
	require.NoError(t, s.Set([]byte("map:visit-2025-06-11"), []byte("b")))
	require.NoError(t, s.Set([]byte("other:key"), []byte("c")))

	keys, err := s.KeysWithPrefix([]byte("map:"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	for _, k := range keys {
		assert.Contains(t, string(k), "map:visit-")
	}
}
