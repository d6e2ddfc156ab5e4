// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package stash

import (
	"sync"

	"github.com/google/uuid"
)

// KeyGenerator produces candidate keys. Store re-rolls when a candidate is
// already in use, so generators only need to be collision-resistant.
type KeyGenerator func() string

// Store is a concurrent map from generated keys to values of type V.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	newKey  KeyGenerator
}

// Option configures a Store.
type Option[V any] func(*Store[V])

// WithKeyGenerator replaces the default UUID generator. Intended for tests.
func WithKeyGenerator[V any](gen KeyGenerator) Option[V] {
	return func(s *Store[V]) {
		s.newKey = gen
	}
}

// New creates an empty store.
func New[V any](opts ...Option[V]) *Store[V] {
	s := &Store[V]{
		entries: make(map[string]V),
		newKey:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores v under a fresh key and returns the key.
func (s *Store[V]) Insert(v V) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.newKey()
	for {
		if _, taken := s.entries[key]; !taken {
			break
		}
		key = s.newKey()
	}

	s.entries[key] = v
	return key
}

// Restore installs v under a caller-provided key, replacing any previous
// value. It is used when rehydrating persisted handles at startup.
func (s *Store[V]) Restore(key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = v
}

// Find returns the value stored under key.
func (s *Store[V]) Find(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Erase removes key and reports whether an entry was removed.
func (s *Store[V]) Erase(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// EraseIf removes every entry for which pred returns true and returns the
// number of entries removed. The predicate runs under the write lock and
// must not call back into the store.
func (s *Store[V]) EraseIf(pred func(key string, v V) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, v := range s.entries {
		if pred(k, v) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Keys returns a snapshot of the current keys in no particular order.
func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
