package transform

import "errors"

// Sentinel errors for transform operations.
var (
	// ErrEncode is returned when a value cannot be prepared for storage.
	ErrEncode = errors.New("transform: encode failed")

	// ErrDecode is returned when stored bytes cannot be restored. Callers
	// treat the entry as unreadable: it is evicted and reported as a miss.
	ErrDecode = errors.New("transform: decode failed")

	// ErrNoKey is returned when encryption is requested but no key
	// material is configured.
	ErrNoKey = errors.New("transform: encryption key not configured")

	// ErrKeySize is returned when key material is not a valid AES-256 key.
	ErrKeySize = errors.New("transform: encryption key must be 32 bytes")

	// ErrCompressionLevel is returned for levels outside the supported range.
	ErrCompressionLevel = errors.New("transform: invalid compression level")
)
