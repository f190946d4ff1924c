package transform

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compression levels accepted by the pipeline. Zero means LevelDefault.
const (
	LevelFastest = 1
	LevelDefault = 2
	LevelBetter  = 3
	LevelBest    = 4
)

// compressor wraps shared zstd encoders and a decoder. EncodeAll and
// DecodeAll are safe for concurrent use, so one encoder per level serves
// all callers.
type compressor struct {
	mu       sync.Mutex
	encoders map[zstd.EncoderLevel]*zstd.Encoder
	decoder  *zstd.Decoder
}

func newCompressor() (*compressor, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("transform: init zstd decoder: %w", err)
	}
	return &compressor{
		encoders: make(map[zstd.EncoderLevel]*zstd.Encoder),
		decoder:  dec,
	}, nil
}

func encoderLevel(level int) (zstd.EncoderLevel, error) {
	switch level {
	case 0, LevelDefault:
		return zstd.SpeedDefault, nil
	case LevelFastest:
		return zstd.SpeedFastest, nil
	case LevelBetter:
		return zstd.SpeedBetterCompression, nil
	case LevelBest:
		return zstd.SpeedBestCompression, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrCompressionLevel, level)
	}
}

// compress encodes src at the given level, appending to a fresh buffer.
func (c *compressor) compress(src []byte, level int) ([]byte, error) {
	lvl, err := encoderLevel(level)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	enc, ok := c.encoders[lvl]
	if !ok {
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(lvl))
		if err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("transform: init zstd encoder: %w", err)
		}
		c.encoders[lvl] = enc
	}
	c.mu.Unlock()

	return enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

// decompress decodes a zstd frame produced by compress.
func (c *compressor) decompress(src []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrDecode, err)
	}
	return out, nil
}
