package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Liv-Coder/data-cache-x-sub001/eviction"
)

// Sentinel errors for storage operations.
var (
	// ErrBackend wraps backend-specific I/O failures. The cache core
	// propagates these untouched and performs no retries.
	ErrBackend = errors.New("storage: backend failure")

	// ErrClosed is returned after an adapter has been closed.
	ErrClosed = errors.New("storage: adapter is closed")
)

// Record is one cached entry as persisted by an adapter: the
// post-transform payload plus the metadata the engine needs to evaluate
// expiry, staleness and eviction without decoding the payload.
type Record struct {
	Payload        []byte            `msgpack:"p"`
	Kind           string            `msgpack:"k"` // codec discriminator
	CreatedAt      time.Time         `msgpack:"c"`
	LastAccessedAt time.Time         `msgpack:"a"`
	ExpireAt       time.Time         `msgpack:"e"` // zero means no expiry
	StaleAt        time.Time         `msgpack:"st"` // zero means never stale
	SlidingExpiry  time.Duration     `msgpack:"sl"`
	Expiry         time.Duration     `msgpack:"ex"` // policy TTL, kept so refreshes renew the same window
	StaleTime      time.Duration     `msgpack:"sx"` // policy stale window
	Refresh        uint8             `msgpack:"r"` // refresh strategy ordinal
	Priority       eviction.Priority `msgpack:"pr"`
	AccessCount    uint64            `msgpack:"n"`
	Tags           []string          `msgpack:"t"`
	Size           int64             `msgpack:"s"` // payload size after transform
	Compressed     bool              `msgpack:"z"`
	Encrypted      bool              `msgpack:"x"`
	Sequence       uint64            `msgpack:"q"` // insertion order
}

// Expired reports whether the record's hard expiry has passed at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpireAt.IsZero() && !now.Before(r.ExpireAt)
}

// Stale reports whether the record is past its stale point but still
// servable at now.
func (r Record) Stale(now time.Time) bool {
	return !r.StaleAt.IsZero() && !now.Before(r.StaleAt) && !r.Expired(now)
}

// HasTag reports whether the record carries the given tag.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Adapter is the narrow storage contract consumed by the cache engine.
//
// Contract:
// - Concurrency: adapters are NOT required to serialize concurrent writes
//   to the same key; the engine's per-key guard does that.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: backend failures must be wrapped with ErrBackend.
type Adapter interface {
	// Put stores or overwrites a record.
	Put(ctx context.Context, key string, rec Record) error

	// Get retrieves a record. The second return is false on miss.
	Get(ctx context.Context, key string) (Record, bool, error)

	// Delete removes a record. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// Clear removes all records.
	Clear(ctx context.Context) error

	// Contains reports raw presence; it does not evaluate expiry.
	Contains(ctx context.Context, key string) (bool, error)

	// Keys returns a stable page of keys. limit <= 0 means no limit.
	Keys(ctx context.Context, limit, offset int) ([]string, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// PutAll stores multiple records.
	PutAll(ctx context.Context, recs map[string]Record) error

	// GetAll retrieves the subset of keys that are present.
	GetAll(ctx context.Context, keys []string) (map[string]Record, error)

	// DeleteAll removes multiple records. Missing keys are not errors.
	DeleteAll(ctx context.Context, keys []string) error

	// ContainsKeys reports raw presence per key.
	ContainsKeys(ctx context.Context, keys []string) (map[string]bool, error)

	// Close releases backend resources.
	Close() error
}

// TagQuerier is an optional acceleration for tag lookups. Adapters that
// do not implement it are served by a paged scan with in-memory tag
// filtering in the engine.
type TagQuerier interface {
	// KeysByTag returns a page of keys carrying the tag.
	KeysByTag(ctx context.Context, tag string, limit, offset int) ([]string, error)

	// KeysByTags returns the keys carrying any of the tags.
	KeysByTags(ctx context.Context, tags []string) ([]string, error)
}
