// Package cache holds the local mirror of each entity collection: the last
// known full set of records, serialized as one JSON array per collection.
// The mirror is whole-collection replace; there is no per-record write.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Collection keys, one blob per entity collection.
const (
	KeyItems   = "mirror:inventory_items"
	KeyUsers   = "mirror:users"
	KeyBorrows = "mirror:borrow_records"
)

type Mirror[T any] interface {
	// LoadAll returns the stored collection; a never-written collection is empty, not an error.
	LoadAll(ctx context.Context) ([]T, error)
	// SaveAll replaces the whole collection.
	SaveAll(ctx context.Context, items []T) error
}

func decode[T any](key string, b []byte) ([]T, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func encode[T any](key string, items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return b, nil
}

// MemoryMirror keeps the serialized blob in process memory. Values round-trip
// through JSON exactly like the redis backend, so callers never share slices.
type MemoryMirror[T any] struct {
	key string
	mu  sync.RWMutex
	b   []byte
}

func NewMemoryMirror[T any](key string) *MemoryMirror[T] {
	return &MemoryMirror[T]{key: key}
}

func (m *MemoryMirror[T]) LoadAll(_ context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decode[T](m.key, m.b)
}

func (m *MemoryMirror[T]) SaveAll(_ context.Context, items []T) error {
	b, err := encode(m.key, items)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.b = b
	m.mu.Unlock()
	return nil
}
