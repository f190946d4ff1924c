package transform

import "fmt"

// DefaultThreshold is the minimum pre-compression payload size, in bytes,
// for which auto mode compresses. Smaller values spend CPU for no real
// space win.
const DefaultThreshold = 1024

// Mode selects the compression decision for one encode.
type Mode int

const (
	// ModeAuto compresses only payloads at or above the pipeline threshold,
	// and keeps the raw form when compression does not shrink the payload.
	ModeAuto Mode = iota

	// ModeAlways compresses regardless of size.
	ModeAlways

	// ModeNever stores the payload uncompressed.
	ModeNever
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeAlways:
		return "always"
	case ModeNever:
		return "never"
	default:
		return "unknown"
	}
}

// Options carries the per-operation transform intent, derived from the
// caller's cache policy.
type Options struct {
	Compress Mode
	Level    int // zstd level, 0 means LevelDefault
	Encrypt  bool
}

// Result describes an encoded payload. Compressed and Encrypted must be
// persisted with the payload; Decode needs them to reverse the transforms.
type Result struct {
	Data       []byte
	Compressed bool
	Encrypted  bool
}

// Config configures a Pipeline.
type Config struct {
	// Threshold is the auto-mode compression threshold in bytes.
	// Default: DefaultThreshold.
	Threshold int

	// Keys supplies AES-256 key material. Nil disables encryption;
	// encodes that request it fail with ErrNoKey.
	Keys KeySource
}

// Pipeline orchestrates compression and encryption around raw value bytes.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ordering: compression before encryption on encode, reversed on decode.
// - Errors: Decode failures wrap ErrDecode; nothing is partially decoded.
type Pipeline struct {
	threshold int
	comp      *compressor
	enc       *encryptor
}

// NewPipeline creates a pipeline from the given configuration.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}

	comp, err := newCompressor()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{threshold: cfg.Threshold, comp: comp}

	if cfg.Keys != nil {
		key, err := cfg.Keys.Key()
		if err != nil {
			return nil, err
		}
		enc, err := newEncryptor(key)
		if err != nil {
			return nil, err
		}
		p.enc = enc
	}

	return p, nil
}

// Threshold returns the auto-mode compression threshold in bytes.
func (p *Pipeline) Threshold() int { return p.threshold }

// Encode prepares raw value bytes for storage.
func (p *Pipeline) Encode(data []byte, opts Options) (Result, error) {
	res := Result{Data: data}

	switch opts.Compress {
	case ModeNever:
		// Stored as-is.
	case ModeAlways:
		out, err := p.comp.compress(data, opts.Level)
		if err != nil {
			return Result{}, err
		}
		res.Data = out
		res.Compressed = true
	case ModeAuto:
		if len(data) >= p.threshold {
			out, err := p.comp.compress(data, opts.Level)
			if err != nil {
				return Result{}, err
			}
			// Incompressible payloads keep their raw form.
			if len(out) < len(data) {
				res.Data = out
				res.Compressed = true
			}
		}
	default:
		return Result{}, fmt.Errorf("%w: unknown compression mode %d", ErrEncode, opts.Compress)
	}

	if opts.Encrypt {
		if p.enc == nil {
			return Result{}, ErrNoKey
		}
		sealed, err := p.enc.seal(res.Data)
		if err != nil {
			return Result{}, err
		}
		res.Data = sealed
		res.Encrypted = true
	}

	return res, nil
}

// Decode restores raw value bytes from their stored form.
func (p *Pipeline) Decode(data []byte, compressed, encrypted bool) ([]byte, error) {
	if encrypted {
		if p.enc == nil {
			return nil, fmt.Errorf("%w: entry is encrypted", ErrNoKey)
		}
		plain, err := p.enc.open(data)
		if err != nil {
			return nil, err
		}
		data = plain
	}

	if compressed {
		out, err := p.comp.decompress(data)
		if err != nil {
			return nil, err
		}
		data = out
	}

	return data, nil
}
