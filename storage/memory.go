package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory Adapter. Key pages are served in sorted order so
// sweeps see a stable iteration across calls.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// NewMemory creates an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Put stores or overwrites a record.
func (m *Memory) Put(_ context.Context, key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records[key] = rec
	return nil
}

// Get retrieves a record. Returns (zero, false, nil) on miss.
func (m *Memory) Get(_ context.Context, key string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, false, ErrClosed
	}
	rec, ok := m.records[key]
	return rec, ok, nil
}

// Delete removes a record. Idempotent.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.records, key)
	return nil
}

// Clear removes all records.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records = make(map[string]Record)
	return nil
}

// Contains reports raw presence without evaluating expiry.
func (m *Memory) Contains(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.records[key]
	return ok, nil
}

// Keys returns a sorted page of keys.
func (m *Memory) Keys(_ context.Context, limit, offset int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return pageKeys(m.sortedKeysLocked(), limit, offset), nil
}

// Count returns the number of stored records.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return len(m.records), nil
}

// PutAll stores multiple records.
func (m *Memory) PutAll(_ context.Context, recs map[string]Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for key, rec := range recs {
		m.records[key] = rec
	}
	return nil
}

// GetAll retrieves the present subset of keys.
func (m *Memory) GetAll(_ context.Context, keys []string) (map[string]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string]Record, len(keys))
	for _, key := range keys {
		if rec, ok := m.records[key]; ok {
			out[key] = rec
		}
	}
	return out, nil
}

// DeleteAll removes multiple records.
func (m *Memory) DeleteAll(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, key := range keys {
		delete(m.records, key)
	}
	return nil
}

// ContainsKeys reports raw presence per key.
func (m *Memory) ContainsKeys(_ context.Context, keys []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string]bool, len(keys))
	for _, key := range keys {
		_, ok := m.records[key]
		out[key] = ok
	}
	return out, nil
}

// KeysByTag returns a sorted page of keys carrying the tag.
func (m *Memory) KeysByTag(_ context.Context, tag string, limit, offset int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var keys []string
	for key, rec := range m.records {
		if rec.HasTag(tag) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return pageKeys(keys, limit, offset), nil
}

// KeysByTags returns the sorted keys carrying any of the tags.
func (m *Memory) KeysByTags(_ context.Context, tags []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var keys []string
	for key, rec := range m.records {
		for _, tag := range tags {
			if rec.HasTag(tag) {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the adapter closed. Subsequent calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}

func (m *Memory) sortedKeysLocked() []string {
	keys := make([]string, 0, len(m.records))
	for key := range m.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func pageKeys(keys []string, limit, offset int) []string {
	if offset >= len(keys) {
		return nil
	}
	keys = keys[offset:]
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}
	return keys
}

// Ensure Memory implements the storage contracts.
var (
	_ Adapter    = (*Memory)(nil)
	_ TagQuerier = (*Memory)(nil)
)
