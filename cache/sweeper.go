package cache

import (
	"context"
	"time"

	"github.com/Liv-Coder/data-cache-x-sub001/observe"
)

// sweepLoop periodically removes expired entries until the engine closes.
func (e *Engine) sweepLoop() {
	defer e.sweepWG.Done()

	ticker := time.NewTicker(e.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.sweep(context.Background())
		case <-e.done:
			return
		}
	}
}

// Sweep removes expired entries immediately, outside the background
// cycle. It returns how many entries were removed and how many were
// skipped because their shard was held by a foreground operation.
func (e *Engine) Sweep(ctx context.Context) (removed, skipped int) {
	if e.closed.Load() {
		return 0, 0
	}
	return e.sweep(ctx)
}

// sweep collects expired keys in a read-only pass over the store, then
// deletes them. Collecting first keeps the page offsets stable while
// the key set shrinks. Keys whose shard is contended are skipped; the
// next cycle gets them. Each candidate is re-checked under its shard
// lock, so a concurrent overwrite is never swept away.
func (e *Engine) sweep(ctx context.Context) (removed, skipped int) {
	start := time.Now()

	var expired []string
	for offset := 0; ; offset += e.cfg.SweepPageSize {
		select {
		case <-e.done:
			return removed, skipped
		default:
		}
		if ctx.Err() != nil {
			return removed, skipped
		}
		keys, err := e.adapter.Keys(ctx, e.cfg.SweepPageSize, offset)
		if err != nil {
			e.log.Warn(ctx, "sweep aborted", observe.F("error", err.Error()))
			return 0, 0
		}
		if len(keys) == 0 {
			break
		}
		recs, err := e.adapter.GetAll(ctx, keys)
		if err != nil {
			e.log.Warn(ctx, "sweep aborted", observe.F("error", err.Error()))
			return 0, 0
		}
		now := time.Now()
		for key, rec := range recs {
			if rec.Expired(now) {
				expired = append(expired, key)
			}
		}
		if len(keys) < e.cfg.SweepPageSize {
			break
		}
	}

	for _, key := range expired {
		if e.sweepKey(ctx, key) {
			removed++
		} else {
			skipped++
		}
	}

	if removed > 0 || skipped > 0 {
		e.log.Debug(ctx, "sweep finished",
			observe.F("removed", removed),
			observe.F("skipped", skipped),
			observe.F("duration", time.Since(start).String()))
	}
	return removed, skipped
}

// sweepKey removes one key if it is still expired once its shard is
// acquired. Returns true when an entry was removed.
func (e *Engine) sweepKey(ctx context.Context, key string) bool {
	idx, ok := e.locks.TryLock(key)
	if !ok {
		return false
	}
	defer e.locks.Unlock(idx)

	rec, ok, err := e.adapter.Get(ctx, key)
	if err != nil || !ok || !rec.Expired(time.Now()) {
		return false
	}
	e.dropLocked(ctx, key, rec)
	e.stats.RecordExpiration(ctx, key, rec.Size)
	return true
}
