package cache

import (
	"context"

	"github.com/Liv-Coder/data-cache-x-sub001/observe"
	"github.com/Liv-Coder/data-cache-x-sub001/storage"
	"github.com/Liv-Coder/data-cache-x-sub001/transform"
)

// refreshAsync schedules a background refresh of key. Concurrent
// requests for the same key collapse into one loader call; when every
// refresh worker is busy the refresh is skipped and the next stale read
// schedules it again.
func (e *Engine) refreshAsync(key string) {
	select {
	case e.refreshSem <- struct{}{}:
	default:
		return
	}
	go func() {
		defer func() { <-e.refreshSem }()
		e.flight.Do(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RefreshTimeout)
			defer cancel()
			return nil, e.refreshKey(ctx, key)
		})
	}()
}

// refreshKey loads a fresh value and re-stores it under the entry's
// derived policy. If the entry was deleted while the loader ran, the
// deletion wins and the fresh value is discarded.
func (e *Engine) refreshKey(ctx context.Context, key string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	value, err := e.loader(ctx, key)
	if err != nil {
		e.log.Warn(ctx, "background refresh failed",
			observe.F("key", key), observe.F("error", err.Error()))
		return err
	}

	idx := e.locks.Lock(key)
	defer e.locks.Unlock(idx)

	prev, ok, err := e.adapter.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	rec, err := e.encode(value, derivePolicy(prev))
	if err != nil {
		return err
	}
	carryLineage(&rec, prev)
	if err := e.storeLocked(ctx, key, rec, idx); err != nil {
		e.log.Warn(ctx, "refreshed value not stored",
			observe.F("key", key), observe.F("error", err.Error()))
		return err
	}
	e.log.Debug(ctx, "entry refreshed", observe.F("key", key))
	return nil
}

// refreshNow refreshes key synchronously while the caller holds its
// shard (idx). It returns the fresh value and true on success; on loader
// failure or timeout it returns false and the caller serves the stale
// value. A loader that completes after the timeout is abandoned.
func (e *Engine) refreshNow(ctx context.Context, key string, prev storage.Record, idx uint32) (any, bool) {
	type outcome struct {
		value any
		err   error
	}

	lctx, cancel := context.WithTimeout(ctx, e.cfg.RefreshTimeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		v, err := e.loader(lctx, key)
		ch <- outcome{value: v, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			e.log.Warn(ctx, "immediate refresh failed, serving stale value",
				observe.F("key", key), observe.F("error", out.err.Error()))
			return nil, false
		}
		rec, err := e.encode(out.value, derivePolicy(prev))
		if err == nil {
			carryLineage(&rec, prev)
			// The read being served counts as an access.
			rec.AccessCount++
			err = e.storeLocked(ctx, key, rec, idx)
		}
		if err != nil {
			// The fresh value is still the better answer; the stale
			// record stays in place and the next read retries the store.
			e.log.Warn(ctx, "refreshed value not stored",
				observe.F("key", key), observe.F("error", err.Error()))
		}
		return out.value, true
	case <-lctx.Done():
		e.log.Warn(ctx, "immediate refresh timed out, serving stale value",
			observe.F("key", key), observe.F("timeout", e.cfg.RefreshTimeout.String()))
		return nil, false
	}
}

// derivePolicy reconstructs the effective policy of an existing record
// so a refreshed value is stored under the same rules, with the expiry
// and stale windows renewed from the refresh instant.
func derivePolicy(rec storage.Record) Policy {
	pol := Policy{
		Expiry:        rec.Expiry,
		SlidingExpiry: rec.SlidingExpiry,
		StaleTime:     rec.StaleTime,
		Refresh:       RefreshMode(rec.Refresh),
		Priority:      rec.Priority,
		Encrypt:       rec.Encrypted,
		Codec:         rec.Kind,
		Tags:          rec.Tags,
	}
	if rec.Compressed {
		pol.Compression = transform.ModeAlways
	} else {
		pol.Compression = transform.ModeAuto
	}
	return pol
}

// carryLineage copies the identity metadata a refresh must never reset:
// a refreshed entry keeps its creation time, insertion order and access
// history, so eviction ordering is undisturbed by the re-store.
func carryLineage(rec *storage.Record, prev storage.Record) {
	rec.CreatedAt = prev.CreatedAt
	rec.Sequence = prev.Sequence
	rec.AccessCount = prev.AccessCount
}
