package cache

import (
	"context"
	"time"
)

// Result is one key's outcome in a bulk read.
type Result struct {
	Value any
	Err   error
}

// PutAll stores every value under the engine's default policy. Each key
// succeeds or fails independently; the returned map holds an entry per
// failed key and is empty when all puts landed.
func (e *Engine) PutAll(ctx context.Context, values map[string]any) map[string]error {
	return e.PutAllWith(ctx, values, *e.cfg.DefaultPolicy)
}

// PutAllWith stores every value under an explicit policy.
func (e *Engine) PutAllWith(ctx context.Context, values map[string]any, pol Policy) map[string]error {
	failed := make(map[string]error)
	for key, value := range values {
		if err := e.PutWith(ctx, key, value, pol); err != nil {
			failed[key] = err
		}
	}
	return failed
}

// GetAll reads every key, returning a per-key outcome. Missing and
// expired keys carry ErrNotFound; they do not fail the others.
func (e *Engine) GetAll(ctx context.Context, keys []string) map[string]Result {
	out := make(map[string]Result, len(keys))
	for _, key := range keys {
		v, err := e.Get(ctx, key)
		out[key] = Result{Value: v, Err: err}
	}
	return out
}

// DeleteAll removes every key. Each key succeeds or fails independently;
// the returned map holds an entry per failed key and is empty when all
// deletes landed. Missing keys are not failures.
func (e *Engine) DeleteAll(ctx context.Context, keys []string) map[string]error {
	failed := make(map[string]error)
	for _, key := range keys {
		if err := e.Delete(ctx, key); err != nil {
			failed[key] = err
		}
	}
	return failed
}

// ContainsKeys reports per-key liveness without touching access
// metadata. Keys that fail validation or whose read fails report false.
func (e *Engine) ContainsKeys(ctx context.Context, keys []string) map[string]bool {
	if e.closed.Load() {
		out := make(map[string]bool, len(keys))
		for _, key := range keys {
			out[key] = false
		}
		return out
	}

	valid := make([]string, 0, len(keys))
	out := make(map[string]bool, len(keys))
	for _, key := range keys {
		if err := ValidateKey(key); err != nil {
			out[key] = false
			continue
		}
		valid = append(valid, key)
	}

	recs, err := e.adapter.GetAll(ctx, valid)
	if err != nil {
		for _, key := range valid {
			out[key] = false
		}
		return out
	}
	now := time.Now()
	for _, key := range valid {
		rec, ok := recs[key]
		out[key] = ok && !rec.Expired(now)
	}
	return out
}
