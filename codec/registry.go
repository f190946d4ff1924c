package codec

import (
	"fmt"
	"sync"
)

// Registry resolves codec names to Codec implementations.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: registries are built explicitly by the caller; there is no
//   process-wide default registry.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry creates a registry preloaded with the built-in codecs
// (raw, string, json, msgpack).
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	for _, c := range []Codec{Raw{}, String{}, JSON{}, Msgpack{}} {
		r.codecs[c.Name()] = c
	}
	return r
}

// Register adds or replaces a codec under its own name.
func (r *Registry) Register(c Codec) error {
	if c == nil {
		return ErrNilCodec
	}
	r.mu.Lock()
	r.codecs[c.Name()] = c
	r.mu.Unlock()
	return nil
}

// Lookup returns the codec registered under name.
func (r *Registry) Lookup(name string) (Codec, error) {
	r.mu.RLock()
	c, ok := r.codecs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// Names returns the registered codec names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	return names
}
