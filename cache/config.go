package cache

import (
	"time"

	"github.com/Liv-Coder/data-cache-x-sub001/eviction"
	"github.com/Liv-Coder/data-cache-x-sub001/transform"
)

// Config configures the cache engine. Zero values take the documented
// defaults; the configuration is immutable for the engine's lifetime.
type Config struct {
	// MaxItems caps the number of stored entries. 0 means unlimited.
	MaxItems int

	// MaxBytes caps the total post-transform payload bytes. 0 means
	// unlimited.
	MaxBytes int64

	// Strategy selects the eviction victim ordering. Default: LRU.
	Strategy eviction.Strategy

	// DefaultPolicy applies to puts without an explicit policy.
	// Nil means DefaultPolicy().
	DefaultPolicy *Policy

	// DefaultCodec names the codec for policies that do not pick one.
	// Default: "msgpack".
	DefaultCodec string

	// CleanupInterval is the sweeper period. 0 means 5 minutes;
	// negative disables the sweeper.
	CleanupInterval time.Duration

	// SweepPageSize bounds how many keys one sweep page examines.
	// Default: 256.
	SweepPageSize int

	// CompressionThreshold is the auto-mode compression threshold in
	// bytes. Default: transform.DefaultThreshold.
	CompressionThreshold int

	// EncryptionKeys supplies AES-256 key material. Nil disables
	// encryption; puts that request it fail.
	EncryptionKeys transform.KeySource

	// RefreshTimeout bounds an immediate-refresh read. After it elapses
	// the stale value is served. Default: 5 seconds.
	RefreshTimeout time.Duration

	// RefreshWorkers bounds concurrent background refreshes. Default: 4.
	RefreshWorkers int
}

// withDefaults returns a copy of the config with defaults applied.
func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = eviction.LRU
	}
	if c.DefaultPolicy == nil {
		p := DefaultPolicy()
		c.DefaultPolicy = &p
	}
	if c.DefaultCodec == "" {
		c.DefaultCodec = "msgpack"
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.SweepPageSize <= 0 {
		c.SweepPageSize = 256
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = 5 * time.Second
	}
	if c.RefreshWorkers <= 0 {
		c.RefreshWorkers = 4
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if c.DefaultPolicy != nil {
		if err := c.DefaultPolicy.Validate(); err != nil {
			return err
		}
	}
	return nil
}
