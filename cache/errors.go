package cache

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	// ErrNotFound is returned when a key is absent or expired at read time.
	ErrNotFound = errors.New("cache: key not found")

	// ErrCapacityExceeded is returned when a value exceeds the policy's
	// max size or the configured cache capacity. Nothing is stored.
	ErrCapacityExceeded = errors.New("cache: capacity exceeded")

	// ErrInvalidKey is returned for empty or malformed keys.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrKeyTooLong is returned for keys over MaxKeyLength.
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrInvalidPolicy is returned when a policy fails validation.
	ErrInvalidPolicy = errors.New("cache: invalid policy")

	// ErrNilAdapter is returned when the engine is built without storage.
	ErrNilAdapter = errors.New("cache: storage adapter is nil")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("cache: engine is closed")

	// ErrTagRepair reports a tag index entry that disagreed with the
	// primary store. The store is authoritative; the index reference has
	// been dropped.
	ErrTagRepair = errors.New("cache: tag index repaired against primary store")
)

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
