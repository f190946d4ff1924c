// Package transform encodes raw value bytes for storage and decodes them
// back on read.
//
// The pipeline applies optional zstd compression followed by optional
// AES-256-GCM encryption (compress-then-encrypt: ciphertext is high
// entropy and would not compress). Decode reverses the two steps. Which
// transforms were applied is recorded per entry, not inferred from the
// bytes.
package transform
