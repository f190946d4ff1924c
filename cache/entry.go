package cache

import (
	"time"

	"github.com/Liv-Coder/data-cache-x-sub001/eviction"
	"github.com/Liv-Coder/data-cache-x-sub001/storage"
)

// Entry is the metadata view of one cached key, as returned by
// Engine.Metadata. It never exposes the payload.
type Entry struct {
	Key            string            `json:"key"`
	Kind           string            `json:"kind"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	ExpireAt       time.Time         `json:"expire_at,omitzero"`
	StaleAt        time.Time         `json:"stale_at,omitzero"`
	SlidingExpiry  time.Duration     `json:"sliding_expiry,omitempty"`
	Priority       eviction.Priority `json:"priority"`
	AccessCount    uint64            `json:"access_count"`
	Tags           []string          `json:"tags,omitempty"`
	Size           int64             `json:"size_bytes"`
	Compressed     bool              `json:"compressed"`
	Encrypted      bool              `json:"encrypted"`
}

// Expired reports whether the entry's hard expiry has passed at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpireAt.IsZero() && !now.Before(e.ExpireAt)
}

// Stale reports whether the entry is refresh-eligible but still servable.
func (e Entry) Stale(now time.Time) bool {
	return !e.StaleAt.IsZero() && !now.Before(e.StaleAt) && !e.Expired(now)
}

func entryFromRecord(key string, rec storage.Record) Entry {
	return Entry{
		Key:            key,
		Kind:           rec.Kind,
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
		ExpireAt:       rec.ExpireAt,
		StaleAt:        rec.StaleAt,
		SlidingExpiry:  rec.SlidingExpiry,
		Priority:       rec.Priority,
		AccessCount:    rec.AccessCount,
		Tags:           rec.Tags,
		Size:           rec.Size,
		Compressed:     rec.Compressed,
		Encrypted:      rec.Encrypted,
	}
}
