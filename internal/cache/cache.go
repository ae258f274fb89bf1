// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cache stores prior query responses keyed by request signature.
//
// A Store has no expiry and no invalidation: Set overwrites unconditionally
// (last writer wins) and Get is a pure lookup. Callers treat a hit exactly like
// a fresh response. Eviction and staleness belong to whoever owns the backing
// medium, not to this package.
package cache

import (
	"context"
	"sync"
)

// Store is a key/value store of responses.
type Store[V any] interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (V, bool, error)
	// Set stores v under key, replacing any previous value.
	Set(ctx context.Context, key string, v V) error
}

// MemoryStore keeps entries in process memory. It lives as long as its owner.
type MemoryStore[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// NewMemory creates an empty in-memory store.
func NewMemory[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{entries: make(map[string]V)}
}

// Get implements Store.
func (m *MemoryStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// Set implements Store.
func (m *MemoryStore[V]) Set(_ context.Context, key string, v V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = v
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
