package transform

import (
	"encoding/hex"
	"fmt"
	"os"
)

// KeySource supplies encryption key material at pipeline construction.
//
// Implementations must not log key material.
type KeySource interface {
	// Key returns the raw AES-256 key bytes.
	Key() ([]byte, error)
}

// StaticKey wraps key bytes held in memory.
type StaticKey []byte

// Key returns the wrapped bytes.
func (k StaticKey) Key() ([]byte, error) {
	if len(k) == 0 {
		return nil, ErrNoKey
	}
	return k, nil
}

// EnvKey reads a hex-encoded key from an environment variable. Useful for
// deployments that inject key material through the process environment.
type EnvKey string

// Key resolves and decodes the variable's value.
func (k EnvKey) Key() ([]byte, error) {
	val, ok := os.LookupEnv(string(k))
	if !ok || val == "" {
		return nil, fmt.Errorf("%w: environment variable %s not set", ErrNoKey, string(k))
	}
	raw, err := hex.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("transform: key in %s is not valid hex: %w", string(k), err)
	}
	return raw, nil
}
