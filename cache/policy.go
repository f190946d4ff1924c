package cache

import (
	"fmt"
	"time"

	"github.com/Liv-Coder/data-cache-x-sub001/eviction"
	"github.com/Liv-Coder/data-cache-x-sub001/transform"
)

// RefreshMode selects how a stale entry is refreshed on read.
type RefreshMode uint8

const (
	// RefreshNever serves stale entries as-is until they expire.
	RefreshNever RefreshMode = iota

	// RefreshBackground serves the stale value immediately and refreshes
	// asynchronously through the engine's loader.
	RefreshBackground

	// RefreshImmediate blocks the read until the loader returns a fresh
	// value, bounded by the engine's refresh timeout. On failure or
	// timeout the stale value is served.
	RefreshImmediate
)

func (m RefreshMode) String() string {
	switch m {
	case RefreshNever:
		return "never"
	case RefreshBackground:
		return "background"
	case RefreshImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// Policy configures one put operation's expiry, staleness, eviction and
// transform behavior. Policies are value objects: supplied per operation,
// never mutated by the engine.
type Policy struct {
	// Expiry is the absolute time-to-live. Zero means no expiry.
	Expiry time.Duration

	// SlidingExpiry renews the entry's expiry on every successful read.
	// When set it takes precedence over Expiry at read time.
	SlidingExpiry time.Duration

	// StaleTime marks the entry refresh-eligible after this duration
	// while still servable. Zero means never stale.
	StaleTime time.Duration

	// Refresh selects the refresh strategy applied to stale reads.
	Refresh RefreshMode

	// Priority influences eviction order. Critical entries are exempt
	// from eviction.
	Priority eviction.Priority

	// Compression selects the compression decision; Level the zstd level.
	Compression transform.Mode
	Level       int

	// Encrypt requests AES-256-GCM encryption of the stored payload.
	Encrypt bool

	// MaxSize rejects values whose post-transform size exceeds this many
	// bytes. Zero means no per-value ceiling.
	MaxSize int64

	// Codec names the codec used to serialize the value. Empty means the
	// engine's default codec.
	Codec string

	// Tags label the entry for group invalidation.
	Tags []string
}

// DefaultPolicy returns the policy applied when none is supplied:
// 1 hour expiry, auto compression, normal priority, no encryption.
func DefaultPolicy() Policy {
	return Policy{
		Expiry:      1 * time.Hour,
		Compression: transform.ModeAuto,
		Priority:    eviction.Normal,
	}
}

// Validate checks the policy for contradictions.
//
// StaleTime beyond Expiry is rejected here rather than resolved at read
// time: expiry is a hard upper bound and an entry can never be stale past
// it, so such a policy is a caller mistake.
func (p Policy) Validate() error {
	if p.Expiry < 0 || p.SlidingExpiry < 0 || p.StaleTime < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidPolicy)
	}
	if p.MaxSize < 0 {
		return fmt.Errorf("%w: max size must not be negative", ErrInvalidPolicy)
	}
	if p.StaleTime > 0 && p.Expiry > 0 && p.StaleTime > p.Expiry {
		return fmt.Errorf("%w: stale time %v exceeds expiry %v", ErrInvalidPolicy, p.StaleTime, p.Expiry)
	}
	if p.Priority < eviction.Low || p.Priority > eviction.Critical {
		return fmt.Errorf("%w: unknown priority %d", ErrInvalidPolicy, p.Priority)
	}
	return nil
}

// expireAt resolves the entry's first expiry instant. Sliding expiry
// starts its window at write time like a fixed TTL; reads renew it.
func (p Policy) expireAt(now time.Time) time.Time {
	if p.SlidingExpiry > 0 {
		return now.Add(p.SlidingExpiry)
	}
	if p.Expiry > 0 {
		return now.Add(p.Expiry)
	}
	return time.Time{}
}

// staleAt resolves the entry's stale instant.
func (p Policy) staleAt(now time.Time) time.Time {
	if p.StaleTime > 0 {
		return now.Add(p.StaleTime)
	}
	return time.Time{}
}
