package eviction

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Sentinel errors for eviction configuration.
var (
	ErrUnknownStrategy = errors.New("eviction: unknown strategy")
)

// Strategy identifies a victim-ordering strategy.
type Strategy string

const (
	// LRU evicts the entry that has not been read for the longest time.
	LRU Strategy = "lru"

	// LFU evicts the entry with the fewest recorded accesses.
	LFU Strategy = "lfu"

	// FIFO evicts the oldest inserted entry, regardless of access.
	FIFO Strategy = "fifo"

	// TTL evicts the entry closest to its expiry; entries with no expiry
	// are considered last.
	TTL Strategy = "ttl"
)

// Validate reports whether s names a known strategy.
func (s Strategy) Validate() error {
	switch s {
	case LRU, LFU, FIFO, TTL:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Priority ranks entries for eviction ordering. Lower priorities are
// evicted first; Critical entries are exempt while any non-critical
// candidate remains.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Critical
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Candidate is the metadata the selector needs to order one entry.
type Candidate struct {
	Key            string
	Size           int64
	Priority       Priority
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpireAt       time.Time // zero means no expiry
	AccessCount    uint64
	Sequence       uint64 // insertion order, used as the stable final tie-break
}

// Need is the capacity shortfall a selection must cover. Zero fields are
// already satisfied.
type Need struct {
	Items int
	Bytes int64
}

func (n Need) satisfied(items int, bytes int64) bool {
	return items >= n.Items && bytes >= n.Bytes
}

// SelectVictims returns the keys to evict, in eviction order, to free the
// requested capacity.
//
// Critical entries are never selected. Ordering follows the strategy,
// with ties broken by lower priority first and then insertion order.
// Selection stops as soon as the shortfall is covered; it never returns
// more victims than necessary. If even evicting every eligible candidate
// cannot cover the shortfall, all eligible candidates are returned;
// the caller detects the remaining overflow itself.
func SelectVictims(candidates []Candidate, strategy Strategy, need Need) ([]string, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Priority == Critical {
			continue
		}
		eligible = append(eligible, c)
	}

	less := orderFunc(strategy)
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if cmp := less(a, b); cmp != 0 {
			return cmp < 0
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Sequence < b.Sequence
	})

	var (
		victims    []string
		freedItems int
		freedBytes int64
	)
	for _, c := range eligible {
		if need.satisfied(freedItems, freedBytes) {
			break
		}
		victims = append(victims, c.Key)
		freedItems++
		freedBytes += c.Size
	}

	return victims, nil
}

// orderFunc returns a three-way comparison for the strategy's sort key.
func orderFunc(strategy Strategy) func(a, b Candidate) int {
	switch strategy {
	case LFU:
		return func(a, b Candidate) int {
			switch {
			case a.AccessCount < b.AccessCount:
				return -1
			case a.AccessCount > b.AccessCount:
				return 1
			default:
				return 0
			}
		}
	case FIFO:
		return func(a, b Candidate) int {
			return compareTime(a.CreatedAt, b.CreatedAt)
		}
	case TTL:
		return func(a, b Candidate) int {
			// No expiry sorts after every dated expiry.
			switch {
			case a.ExpireAt.IsZero() && b.ExpireAt.IsZero():
				return 0
			case a.ExpireAt.IsZero():
				return 1
			case b.ExpireAt.IsZero():
				return -1
			default:
				return compareTime(a.ExpireAt, b.ExpireAt)
			}
		}
	default: // LRU
		return func(a, b Candidate) int {
			return compareTime(a.LastAccessedAt, b.LastAccessedAt)
		}
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
