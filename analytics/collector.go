package analytics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// KeyStat is a per-key statistics snapshot.
type KeyStat struct {
	Key         string    `json:"key"`
	AccessCount uint64    `json:"access_count"`
	LastAccess  time.Time `json:"last_access"`
	Size        int64     `json:"size_bytes"`
}

// Snapshot is a consistent view of the collector's counters.
type Snapshot struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Puts        int64   `json:"puts"`
	Deletes     int64   `json:"deletes"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
	StoredBytes int64   `json:"stored_bytes"`
	TrackedKeys int     `json:"tracked_keys"`
	HitRate     float64 `json:"hit_rate"`
}

// Collector accumulates cache usage statistics.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Role: observational only; never a source of truth for eviction or
//   expiry, and rebuildable from the primary store.
type Collector struct {
	mu          sync.RWMutex
	hits        int64
	misses      int64
	puts        int64
	deletes     int64
	evictions   int64
	expirations int64
	storedBytes int64
	keys        map[string]*keyStats

	inst *instruments // nil when telemetry export is disabled
}

type keyStats struct {
	accessCount uint64
	lastAccess  time.Time
	size        int64
}

// NewCollector creates a collector without telemetry export.
func NewCollector() *Collector {
	return &Collector{keys: make(map[string]*keyStats)}
}

// RecordHit records a successful read of key.
func (c *Collector) RecordHit(ctx context.Context, key string) {
	c.mu.Lock()
	c.hits++
	ks := c.statLocked(key)
	ks.accessCount++
	ks.lastAccess = time.Now()
	c.mu.Unlock()

	c.inst.addHit(ctx)
}

// RecordMiss records a failed read.
func (c *Collector) RecordMiss(ctx context.Context) {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()

	c.inst.addMiss(ctx)
}

// RecordPut records a stored entry of the given post-transform size.
// An overwrite passes the previous size so byte accounting stays exact.
func (c *Collector) RecordPut(ctx context.Context, key string, size, previousSize int64) {
	c.mu.Lock()
	c.puts++
	c.storedBytes += size - previousSize
	ks := c.statLocked(key)
	ks.size = size
	c.mu.Unlock()

	c.inst.addPut(ctx, size)
}

// RecordDelete records removal of an entry of the given size.
func (c *Collector) RecordDelete(ctx context.Context, key string, size int64) {
	c.mu.Lock()
	c.deletes++
	c.storedBytes -= size
	delete(c.keys, key)
	c.mu.Unlock()

	c.inst.addDelete(ctx)
}

// RecordEviction records a capacity-pressure removal.
func (c *Collector) RecordEviction(ctx context.Context, key string, size int64) {
	c.mu.Lock()
	c.evictions++
	c.storedBytes -= size
	delete(c.keys, key)
	c.mu.Unlock()

	c.inst.addEviction(ctx)
}

// RecordExpiration records removal of an entry found expired.
func (c *Collector) RecordExpiration(ctx context.Context, key string, size int64) {
	c.mu.Lock()
	c.expirations++
	c.storedBytes -= size
	delete(c.keys, key)
	c.mu.Unlock()

	c.inst.addExpiration(ctx)
}

// RecordLatency records the duration of one engine operation.
func (c *Collector) RecordLatency(ctx context.Context, op string, d time.Duration) {
	c.inst.recordLatency(ctx, op, d)
}

// HitRate returns hits / (hits + misses), or 0 before any access.
func (c *Collector) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return hitRate(c.hits, c.misses)
}

// StoredBytes returns the current byte accounting total.
func (c *Collector) StoredBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storedBytes
}

// Snapshot returns a consistent copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Hits:        c.hits,
		Misses:      c.misses,
		Puts:        c.puts,
		Deletes:     c.deletes,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		StoredBytes: c.storedBytes,
		TrackedKeys: len(c.keys),
		HitRate:     hitRate(c.hits, c.misses),
	}
}

// Reset zeroes all counters and per-key statistics. Stored entries are
// not touched; this only clears the observational state.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses, c.puts, c.deletes = 0, 0, 0, 0
	c.evictions, c.expirations, c.storedBytes = 0, 0, 0
	c.keys = make(map[string]*keyStats)
}

// ClearStored zeroes the stored-bytes gauge and per-key statistics while
// keeping the lifetime counters. Used when the cache is cleared: the
// operation history survives, the content view does not.
func (c *Collector) ClearStored() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storedBytes = 0
	c.keys = make(map[string]*keyStats)
}

// MostAccessed returns up to n keys ordered by access count descending.
func (c *Collector) MostAccessed(n int) []KeyStat {
	return c.topN(n, func(a, b KeyStat) bool {
		if a.AccessCount != b.AccessCount {
			return a.AccessCount > b.AccessCount
		}
		return a.Key < b.Key
	})
}

// RecentlyAccessed returns up to n keys ordered by last access descending.
func (c *Collector) RecentlyAccessed(n int) []KeyStat {
	return c.topN(n, func(a, b KeyStat) bool {
		if !a.LastAccess.Equal(b.LastAccess) {
			return a.LastAccess.After(b.LastAccess)
		}
		return a.Key < b.Key
	})
}

// Largest returns up to n keys ordered by payload size descending.
func (c *Collector) Largest(n int) []KeyStat {
	return c.topN(n, func(a, b KeyStat) bool {
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Key < b.Key
	})
}

func (c *Collector) topN(n int, less func(a, b KeyStat) bool) []KeyStat {
	c.mu.RLock()
	stats := make([]KeyStat, 0, len(c.keys))
	for key, ks := range c.keys {
		stats = append(stats, KeyStat{
			Key:         key,
			AccessCount: ks.accessCount,
			LastAccess:  ks.lastAccess,
			Size:        ks.size,
		})
	}
	c.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool { return less(stats[i], stats[j]) })
	if n > 0 && n < len(stats) {
		stats = stats[:n]
	}
	return stats
}

func (c *Collector) statLocked(key string) *keyStats {
	ks, ok := c.keys[key]
	if !ok {
		ks = &keyStats{}
		c.keys[key] = ks
	}
	return ks
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
