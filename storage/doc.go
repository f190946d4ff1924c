// Package storage defines the key-value contract the cache engine runs
// on, plus an in-memory reference adapter.
//
// Adapters persist opaque records; they perform no expiry, eviction or
// transform logic of their own. Backend failures are wrapped with
// ErrBackend so callers can classify them without knowing the backend.
package storage
