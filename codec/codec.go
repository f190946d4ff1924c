package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors for codec operations.
var (
	ErrUnknownCodec = errors.New("codec: unknown codec name")
	ErrNilCodec     = errors.New("codec: codec is nil")
	ErrTypeMismatch = errors.New("codec: value type not supported by codec")
)

// Codec serializes values of one shape to bytes and back.
//
// Contract:
// - Determinism: Unmarshal(Marshal(v)) must be equivalent to v.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Marshal must reject values it cannot faithfully round-trip.
type Codec interface {
	// Name identifies the codec. It is stored alongside each payload and
	// used to resolve the codec again on read.
	Name() string

	// Marshal converts a value to its byte representation.
	Marshal(v any) ([]byte, error)

	// Unmarshal converts bytes back to a value.
	Unmarshal(data []byte) (any, error)
}

// Raw passes byte slices through untouched.
type Raw struct{}

// Name returns "raw".
func (Raw) Name() string { return "raw" }

// Marshal accepts only []byte values.
func (Raw) Marshal(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: raw codec requires []byte, got %T", ErrTypeMismatch, v)
	}
	return b, nil
}

// Unmarshal returns the bytes as-is.
func (Raw) Unmarshal(data []byte) (any, error) {
	return data, nil
}

// String stores plain strings as UTF-8 bytes.
type String struct{}

// Name returns "string".
func (String) Name() string { return "string" }

// Marshal accepts only string values.
func (String) Marshal(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: string codec requires string, got %T", ErrTypeMismatch, v)
	}
	return []byte(s), nil
}

// Unmarshal returns the bytes as a string.
func (String) Unmarshal(data []byte) (any, error) {
	return string(data), nil
}

// JSON serializes arbitrary values as JSON documents.
//
// Decoded values use the generic JSON shapes (map[string]any, []any,
// float64, string, bool, nil).
type JSON struct{}

// Name returns "json".
func (JSON) Name() string { return "json" }

// Marshal encodes the value as JSON.
func (JSON) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: json marshal: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a JSON document into its generic representation.
func (JSON) Unmarshal(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("codec: json unmarshal: %w", err)
	}
	return v, nil
}

// Msgpack serializes arbitrary values with MessagePack. It is the default
// codec: denser than JSON and it preserves integer types.
type Msgpack struct{}

// Name returns "msgpack".
func (Msgpack) Name() string { return "msgpack" }

// Marshal encodes the value as MessagePack.
func (Msgpack) Marshal(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: msgpack marshal: %w", err)
	}
	return b, nil
}

// Unmarshal decodes MessagePack bytes into their generic representation.
func (Msgpack) Unmarshal(data []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("codec: msgpack unmarshal: %w", err)
	}
	return v, nil
}

// Interface assertions.
var (
	_ Codec = Raw{}
	_ Codec = String{}
	_ Codec = JSON{}
	_ Codec = Msgpack{}
)
