// ABOUTME: Persistent key-value store backed by BadgerDB
// ABOUTME: Provides atomic read-modify-write and prefix scans for the event mapping
package kv

import (
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v3"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = badger.ErrKeyNotFound

// Store wraps a Badger database with a small, mutex-guarded API.
type Store struct {
	db *badger.DB
	mu sync.RWMutex
}

// Open opens (or creates) a store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only for the process lifetime.
// Used by tests and dry runs.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory kv store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get retrieves a value by key. Returns ErrNotFound if absent.
func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a value under key.
func (s *Store) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Update runs fn against the current value of key inside one
// transaction and stores the result. fn receives nil when the key is
// absent; returning nil from fn deletes the key.
func (s *Store) Update(key []byte, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		var current []byte
		item, err := txn.Get(key)
		if err == nil {
			current, err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return txn.Delete(key)
		}
		return txn.Set(key, next)
	})
}

// KeysWithPrefix returns all keys starting with prefix.
func (s *Store) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
