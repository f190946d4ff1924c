package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Liv-Coder/data-cache-x-sub001/analytics"
	"github.com/Liv-Coder/data-cache-x-sub001/codec"
	"github.com/Liv-Coder/data-cache-x-sub001/eviction"
	"github.com/Liv-Coder/data-cache-x-sub001/observe"
	"github.com/Liv-Coder/data-cache-x-sub001/storage"
	"github.com/Liv-Coder/data-cache-x-sub001/transform"
)

// Loader produces a fresh value for a key during refresh.
type Loader func(ctx context.Context, key string) (any, error)

// Engine is the policy-driven cache core. It owns key validation,
// serialization, the transform pipeline, capacity enforcement, tag
// indexing and expiry, and delegates persistence to a storage.Adapter.
//
// Contract:
// - Concurrency: safe for concurrent use. Writes to the same key are
//   serialized by a sharded per-key guard.
// - Capacity: enforced synchronously on every put; a put never leaves
//   the cache over its configured limits.
// - Errors: reads distinguish absence (ErrNotFound) from backend
//   failure (storage.ErrBackend).
type Engine struct {
	cfg      Config
	adapter  storage.Adapter
	tagq     storage.TagQuerier // nil when the adapter cannot serve tags
	pipeline *transform.Pipeline
	codecs   *codec.Registry
	stats    *analytics.Collector
	log      observe.Logger
	tracer   trace.Tracer
	loader   Loader

	locks keyMutex
	tags  *tagIndex

	flight     singleflight.Group
	refreshSem chan struct{}

	// seq orders insertions for eviction tie-breaks. Seeded from the
	// clock so ordering survives restarts against persistent adapters.
	seq atomic.Uint64

	usage struct {
		mu    sync.Mutex
		items int
		bytes int64
	}

	closed  atomic.Bool
	done    chan struct{}
	sweepWG sync.WaitGroup
}

// Option customizes an Engine beyond its Config.
type Option func(*Engine)

// WithLoader installs the refresh loader. Without one, stale entries are
// served as-is regardless of their refresh mode.
func WithLoader(l Loader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithLogger installs a logger. Default: no-op.
func WithLogger(l observe.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l.WithComponent("cache")
		}
	}
}

// WithCollector installs an analytics collector, e.g. one created with
// analytics.NewCollectorWithMeter for telemetry export.
func WithCollector(c *analytics.Collector) Option {
	return func(e *Engine) {
		if c != nil {
			e.stats = c
		}
	}
}

// WithTracer installs a tracer. Default: the global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithCodecs installs a codec registry, replacing the built-in one.
func WithCodecs(r *codec.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.codecs = r
		}
	}
}

// WithPipeline installs a prebuilt transform pipeline, overriding the
// one the engine would construct from its Config.
func WithPipeline(p *transform.Pipeline) Option {
	return func(e *Engine) {
		if p != nil {
			e.pipeline = p
		}
	}
}

// New creates an engine on top of the given storage adapter. The tag
// index and capacity accounting are rebuilt from the store before the
// engine accepts traffic, so persistent adapters resume consistently.
func New(adapter storage.Adapter, cfg Config, opts ...Option) (*Engine, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		adapter:    adapter,
		codecs:     codec.NewRegistry(),
		stats:      analytics.NewCollector(),
		log:        observe.NopLogger(),
		tracer:     otel.Tracer("cache"),
		tags:       newTagIndex(),
		refreshSem: make(chan struct{}, cfg.RefreshWorkers),
		done:       make(chan struct{}),
	}
	e.seq.Store(uint64(time.Now().UnixNano()))

	if tq, ok := adapter.(storage.TagQuerier); ok {
		e.tagq = tq
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.pipeline == nil {
		p, err := transform.NewPipeline(transform.Config{
			Threshold: cfg.CompressionThreshold,
			Keys:      cfg.EncryptionKeys,
		})
		if err != nil {
			return nil, err
		}
		e.pipeline = p
	}

	if _, err := e.codecs.Lookup(cfg.DefaultCodec); err != nil {
		return nil, err
	}

	if err := e.rebuild(context.Background()); err != nil {
		return nil, err
	}

	if cfg.CleanupInterval > 0 {
		e.sweepWG.Add(1)
		go e.sweepLoop()
	}

	return e, nil
}

// rebuild scans the store page by page to reconstruct the tag index and
// the item/byte usage counters.
func (e *Engine) rebuild(ctx context.Context) error {
	for offset := 0; ; offset += e.cfg.SweepPageSize {
		keys, err := e.adapter.Keys(ctx, e.cfg.SweepPageSize, offset)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		recs, err := e.adapter.GetAll(ctx, keys)
		if err != nil {
			return err
		}
		for key, rec := range recs {
			e.tags.add(key, rec.Tags)
			e.usage.mu.Lock()
			e.usage.items++
			e.usage.bytes += rec.Size
			e.usage.mu.Unlock()
		}
		if len(keys) < e.cfg.SweepPageSize {
			return nil
		}
	}
}

// Put stores value under key with the engine's default policy.
func (e *Engine) Put(ctx context.Context, key string, value any) error {
	return e.PutWith(ctx, key, value, *e.cfg.DefaultPolicy)
}

// PutWith stores value under key with an explicit policy.
func (e *Engine) PutWith(ctx context.Context, key string, value any, pol Policy) error {
	start := time.Now()
	if e.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := pol.Validate(); err != nil {
		return err
	}

	ctx, span := e.tracer.Start(ctx, "cache.put",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	rec, err := e.encode(value, pol)
	if err != nil {
		return err
	}

	idx := e.locks.Lock(key)
	defer e.locks.Unlock(idx)

	err = e.storeLocked(ctx, key, rec, idx)
	if err != nil {
		return err
	}

	e.stats.RecordLatency(ctx, "put", time.Since(start))
	return nil
}

// encode serializes and transforms value into a storable record.
// Timestamps and the insertion sequence are filled in; the record is not
// yet persisted.
func (e *Engine) encode(value any, pol Policy) (storage.Record, error) {
	name := pol.Codec
	if name == "" {
		name = e.cfg.DefaultCodec
	}
	c, err := e.codecs.Lookup(name)
	if err != nil {
		return storage.Record{}, err
	}
	raw, err := c.Marshal(value)
	if err != nil {
		return storage.Record{}, err
	}

	res, err := e.pipeline.Encode(raw, transform.Options{
		Compress: pol.Compression,
		Level:    pol.Level,
		Encrypt:  pol.Encrypt,
	})
	if err != nil {
		return storage.Record{}, err
	}

	size := int64(len(res.Data))
	if pol.MaxSize > 0 && size > pol.MaxSize {
		return storage.Record{}, fmt.Errorf("%w: value is %d bytes, policy max is %d",
			ErrCapacityExceeded, size, pol.MaxSize)
	}
	if e.cfg.MaxBytes > 0 && size > e.cfg.MaxBytes {
		return storage.Record{}, fmt.Errorf("%w: value is %d bytes, cache max is %d",
			ErrCapacityExceeded, size, e.cfg.MaxBytes)
	}

	now := time.Now()
	tags := append([]string(nil), pol.Tags...)
	return storage.Record{
		Payload:        res.Data,
		Kind:           c.Name(),
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpireAt:       pol.expireAt(now),
		StaleAt:        pol.staleAt(now),
		SlidingExpiry:  pol.SlidingExpiry,
		Expiry:         pol.Expiry,
		StaleTime:      pol.StaleTime,
		Refresh:        uint8(pol.Refresh),
		Priority:       pol.Priority,
		Tags:           tags,
		Size:           size,
		Compressed:     res.Compressed,
		Encrypted:      res.Encrypted,
		Sequence:       e.seq.Add(1),
	}, nil
}

// storeLocked persists rec under key while the caller holds the key's
// shard (idx). It enforces capacity, evicting victims if needed, and
// keeps the usage counters and tag index in step with the store.
func (e *Engine) storeLocked(ctx context.Context, key string, rec storage.Record, idx uint32) error {
	prev, existed, err := e.adapter.Get(ctx, key)
	if err != nil {
		return err
	}
	var prevSize int64
	if existed {
		prevSize = prev.Size
	}

	need := e.shortfall(existed, prevSize, rec.Size)
	if need.Items > 0 || need.Bytes > 0 {
		if err := e.evict(ctx, key, idx, need); err != nil {
			return err
		}
	}

	if err := e.adapter.Put(ctx, key, rec); err != nil {
		return err
	}

	e.usage.mu.Lock()
	if !existed {
		e.usage.items++
	}
	e.usage.bytes += rec.Size - prevSize
	e.usage.mu.Unlock()

	if existed {
		e.tags.replace(key, prev.Tags, rec.Tags)
	} else {
		e.tags.add(key, rec.Tags)
	}

	e.stats.RecordPut(ctx, key, rec.Size, prevSize)
	return nil
}

// shortfall computes the capacity that must be freed before a put of
// size bytes can land, given whether the key already exists.
func (e *Engine) shortfall(existed bool, prevSize, size int64) eviction.Need {
	e.usage.mu.Lock()
	items, bytes := e.usage.items, e.usage.bytes
	e.usage.mu.Unlock()

	var need eviction.Need
	if !existed && e.cfg.MaxItems > 0 && items+1 > e.cfg.MaxItems {
		need.Items = items + 1 - e.cfg.MaxItems
	}
	if e.cfg.MaxBytes > 0 {
		after := bytes - prevSize + size
		if after > e.cfg.MaxBytes {
			need.Bytes = after - e.cfg.MaxBytes
		}
	}
	return need
}

// evict frees the given shortfall by removing victims chosen by the
// configured strategy. The caller holds shard heldIdx for exclude, so
// victims in that shard are removed without re-locking; victims in other
// shards are taken with TryLock and skipped when contended, which may
// leave the shortfall uncovered and the put rejected.
func (e *Engine) evict(ctx context.Context, exclude string, heldIdx uint32, need eviction.Need) error {
	cands, err := e.candidates(ctx, exclude)
	if err != nil {
		return err
	}

	victims, err := eviction.SelectVictims(cands, e.cfg.Strategy, need)
	if err != nil {
		return err
	}

	var freedItems int
	var freedBytes int64
	for _, victim := range victims {
		vIdx, locked := e.victimLock(victim, heldIdx)
		if !locked {
			continue
		}
		rec, ok, err := e.adapter.Get(ctx, victim)
		if err != nil {
			e.victimUnlock(vIdx, heldIdx)
			return err
		}
		if !ok {
			e.victimUnlock(vIdx, heldIdx)
			continue
		}
		if err := e.adapter.Delete(ctx, victim); err != nil {
			e.victimUnlock(vIdx, heldIdx)
			return err
		}
		e.victimUnlock(vIdx, heldIdx)

		e.usage.mu.Lock()
		e.usage.items--
		e.usage.bytes -= rec.Size
		e.usage.mu.Unlock()
		e.tags.remove(victim, rec.Tags)
		e.stats.RecordEviction(ctx, victim, rec.Size)
		e.log.Debug(ctx, "evicted entry",
			observe.F("key", victim),
			observe.F("size_bytes", rec.Size),
			observe.F("strategy", string(e.cfg.Strategy)))

		freedItems++
		freedBytes += rec.Size
		if freedItems >= need.Items && freedBytes >= need.Bytes {
			return nil
		}
	}

	if freedItems < need.Items || freedBytes < need.Bytes {
		return fmt.Errorf("%w: eviction freed %d items / %d bytes, needed %d / %d",
			ErrCapacityExceeded, freedItems, freedBytes, need.Items, need.Bytes)
	}
	return nil
}

// victimLock acquires the shard for a victim key unless that shard is
// the one the caller already holds.
func (e *Engine) victimLock(key string, heldIdx uint32) (uint32, bool) {
	idx := e.locks.index(key)
	if idx == heldIdx {
		return idx, true
	}
	_, ok := e.locks.TryLock(key)
	return idx, ok
}

func (e *Engine) victimUnlock(idx, heldIdx uint32) {
	if idx != heldIdx {
		e.locks.Unlock(idx)
	}
}

// candidates snapshots every stored entry except exclude as an eviction
// candidate. Expired entries are included; any strategy evicts them
// cheaply and the sweeper reclaims the rest.
func (e *Engine) candidates(ctx context.Context, exclude string) ([]eviction.Candidate, error) {
	var out []eviction.Candidate
	for offset := 0; ; offset += e.cfg.SweepPageSize {
		keys, err := e.adapter.Keys(ctx, e.cfg.SweepPageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return out, nil
		}
		recs, err := e.adapter.GetAll(ctx, keys)
		if err != nil {
			return nil, err
		}
		for key, rec := range recs {
			if key == exclude {
				continue
			}
			out = append(out, eviction.Candidate{
				Key:            key,
				Size:           rec.Size,
				Priority:       rec.Priority,
				CreatedAt:      rec.CreatedAt,
				LastAccessedAt: rec.LastAccessedAt,
				ExpireAt:       rec.ExpireAt,
				AccessCount:    rec.AccessCount,
				Sequence:       rec.Sequence,
			})
		}
		if len(keys) < e.cfg.SweepPageSize {
			return out, nil
		}
	}
}

// Get retrieves the value stored under key. Expired entries are removed
// and reported as misses. Stale entries are refreshed according to their
// policy when a loader is installed.
func (e *Engine) Get(ctx context.Context, key string) (any, error) {
	start := time.Now()
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "cache.get",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	idx := e.locks.Lock(key)
	defer e.locks.Unlock(idx)

	rec, ok, err := e.adapter.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !ok {
		e.stats.RecordMiss(ctx)
		return nil, ErrNotFound
	}
	if rec.Expired(now) {
		e.dropLocked(ctx, key, rec)
		e.stats.RecordExpiration(ctx, key, rec.Size)
		e.stats.RecordMiss(ctx)
		return nil, ErrNotFound
	}

	value, err := e.decode(rec)
	if err != nil {
		// An entry that cannot be decoded can never be served again.
		// Remove it so the next read repopulates.
		e.dropLocked(ctx, key, rec)
		e.stats.RecordDelete(ctx, key, rec.Size)
		e.stats.RecordMiss(ctx)
		e.log.Warn(ctx, "dropped undecodable entry",
			observe.F("key", key), observe.F("error", err.Error()))
		return nil, fmt.Errorf("%w: entry was undecodable and has been removed: %v", ErrNotFound, err)
	}

	if rec.Stale(now) && e.loader != nil {
		switch RefreshMode(rec.Refresh) {
		case RefreshBackground:
			e.refreshAsync(key)
		case RefreshImmediate:
			if fresh, ok := e.refreshNow(ctx, key, rec, idx); ok {
				e.stats.RecordHit(ctx, key)
				e.stats.RecordLatency(ctx, "get", time.Since(start))
				return fresh, nil
			}
			// Timeout or loader failure: the stale value is still good.
		}
	}

	e.touchLocked(ctx, key, rec, now)
	e.stats.RecordHit(ctx, key)
	e.stats.RecordLatency(ctx, "get", time.Since(start))
	return value, nil
}

// decode reverses the transform pipeline and the codec for one record.
func (e *Engine) decode(rec storage.Record) (any, error) {
	raw, err := e.pipeline.Decode(rec.Payload, rec.Compressed, rec.Encrypted)
	if err != nil {
		return nil, err
	}
	c, err := e.codecs.Lookup(rec.Kind)
	if err != nil {
		return nil, err
	}
	return c.Unmarshal(raw)
}

// touchLocked records an access: bump the access count, stamp the access
// time and renew a sliding expiry. Persisting the touch is best effort;
// a failed write costs recency accuracy, not correctness.
func (e *Engine) touchLocked(ctx context.Context, key string, rec storage.Record, now time.Time) {
	rec.AccessCount++
	rec.LastAccessedAt = now
	if rec.SlidingExpiry > 0 {
		rec.ExpireAt = now.Add(rec.SlidingExpiry)
	}
	if err := e.adapter.Put(ctx, key, rec); err != nil {
		e.log.Warn(ctx, "access touch not persisted",
			observe.F("key", key), observe.F("error", err.Error()))
	}
}

// dropLocked removes an entry and its bookkeeping while the caller holds
// the key's shard.
func (e *Engine) dropLocked(ctx context.Context, key string, rec storage.Record) {
	if err := e.adapter.Delete(ctx, key); err != nil {
		e.log.Warn(ctx, "entry removal failed",
			observe.F("key", key), observe.F("error", err.Error()))
		return
	}
	e.usage.mu.Lock()
	e.usage.items--
	e.usage.bytes -= rec.Size
	e.usage.mu.Unlock()
	e.tags.remove(key, rec.Tags)
}

// Delete removes key. Deleting an absent key is not an error.
func (e *Engine) Delete(ctx context.Context, key string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	idx := e.locks.Lock(key)
	defer e.locks.Unlock(idx)

	rec, ok, err := e.adapter.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := e.adapter.Delete(ctx, key); err != nil {
		return err
	}
	e.usage.mu.Lock()
	e.usage.items--
	e.usage.bytes -= rec.Size
	e.usage.mu.Unlock()
	e.tags.remove(key, rec.Tags)
	e.stats.RecordDelete(ctx, key, rec.Size)
	return nil
}

// DeleteByTag removes every entry carrying tag and returns how many were
// removed. Index entries that disagree with the store are repaired and
// logged rather than failing the operation.
func (e *Engine) DeleteByTag(ctx context.Context, tag string) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}

	ctx, span := e.tracer.Start(ctx, "cache.delete_by_tag",
		trace.WithAttributes(attribute.String("cache.tag", tag)))
	defer span.End()

	keys := e.tags.keys(tag)
	removed := 0
	for _, key := range keys {
		idx := e.locks.Lock(key)
		rec, ok, err := e.adapter.Get(ctx, key)
		if err != nil {
			e.locks.Unlock(idx)
			return removed, err
		}
		if !ok || !rec.HasTag(tag) {
			// Stale index reference. The store is authoritative.
			e.tags.remove(key, []string{tag})
			e.locks.Unlock(idx)
			e.log.Warn(ctx, ErrTagRepair.Error(),
				observe.F("key", key), observe.F("tag", tag))
			continue
		}
		if err := e.adapter.Delete(ctx, key); err != nil {
			e.locks.Unlock(idx)
			return removed, err
		}
		e.usage.mu.Lock()
		e.usage.items--
		e.usage.bytes -= rec.Size
		e.usage.mu.Unlock()
		e.tags.remove(key, rec.Tags)
		e.stats.RecordDelete(ctx, key, rec.Size)
		e.locks.Unlock(idx)
		removed++
	}
	return removed, nil
}

// KeysByTag returns the keys currently indexed under tag. When the
// adapter can answer tag queries itself the store is asked directly.
func (e *Engine) KeysByTag(ctx context.Context, tag string) ([]string, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if e.tagq != nil {
		return e.tagq.KeysByTags(ctx, []string{tag})
	}
	return e.tags.keys(tag), nil
}

// Clear removes every entry. Analytics counters survive a clear; the
// stored-content view is reset.
func (e *Engine) Clear(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := e.adapter.Clear(ctx); err != nil {
		return err
	}
	e.usage.mu.Lock()
	e.usage.items, e.usage.bytes = 0, 0
	e.usage.mu.Unlock()
	e.tags.clear()
	e.stats.ClearStored()
	return nil
}

// ContainsKey reports whether key holds a live (non-expired) entry. It
// does not count as a hit or miss and does not touch access metadata.
func (e *Engine) ContainsKey(ctx context.Context, key string) (bool, error) {
	if e.closed.Load() {
		return false, ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	rec, ok, err := e.adapter.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return ok && !rec.Expired(time.Now()), nil
}

// Metadata returns the metadata view of key without reading the payload
// or touching access statistics.
func (e *Engine) Metadata(ctx context.Context, key string) (Entry, error) {
	if e.closed.Load() {
		return Entry{}, ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return Entry{}, err
	}
	rec, ok, err := e.adapter.Get(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	if !ok || rec.Expired(time.Now()) {
		return Entry{}, ErrNotFound
	}
	return entryFromRecord(key, rec), nil
}

// Len returns the number of stored entries, expired or not.
func (e *Engine) Len() int {
	e.usage.mu.Lock()
	defer e.usage.mu.Unlock()
	return e.usage.items
}

// Size returns the total post-transform payload bytes currently stored.
func (e *Engine) Size() int64 {
	e.usage.mu.Lock()
	defer e.usage.mu.Unlock()
	return e.usage.bytes
}

// Keys returns a stable page of stored keys.
func (e *Engine) Keys(ctx context.Context, limit, offset int) ([]string, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	return e.adapter.Keys(ctx, limit, offset)
}

// Stats returns a snapshot of the engine's analytics counters.
func (e *Engine) Stats() analytics.Snapshot {
	return e.stats.Snapshot()
}

// Analytics exposes the engine's collector for top-N queries.
func (e *Engine) Analytics() *analytics.Collector {
	return e.stats
}

// Close stops the sweeper, waits for it, and closes the adapter.
// Operations after Close return ErrClosed.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(e.done)
	e.sweepWG.Wait()
	return e.adapter.Close()
}
