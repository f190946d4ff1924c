package transform

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// aeadKeySize is the AES-256 key length in bytes.
const aeadKeySize = 32

// encryptor seals and opens payloads with AES-256-GCM. The random nonce
// is prepended to the ciphertext.
type encryptor struct {
	aead cipher.AEAD
}

func newEncryptor(key []byte) (*encryptor, error) {
	if len(key) != aeadKeySize {
		return nil, fmt.Errorf("%w: got %d", ErrKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("transform: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("transform: init gcm: %w", err)
	}
	return &encryptor{aead: aead}, nil
}

func (e *encryptor) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrEncode, err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *encryptor) open(sealed []byte) ([]byte, error) {
	ns := e.aead.NonceSize()
	if len(sealed) < ns {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", ErrDecode)
	}
	plaintext, err := e.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		// Wrong key or corrupt ciphertext; caller treats the entry as lost.
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return plaintext, nil
}
