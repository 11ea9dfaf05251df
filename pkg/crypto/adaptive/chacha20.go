// Package adaptive provides the AEAD ciphers used to seal session data.
package adaptive

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20 implements ChaCha20-Poly1305 and XChaCha20-Poly1305.
type ChaCha20 struct {
	baseCipher
	cipherType CipherType
}

// NewChaCha20 creates a new ChaCha20-Poly1305 cipher with a 12-byte nonce.
//
// Key must be exactly 32 bytes.
func NewChaCha20(key []byte) (*ChaCha20, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: ChaCha20-Poly1305 needs 32 bytes, got %d", ErrKeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	return &ChaCha20{
		baseCipher: baseCipher{aead: aead},
		cipherType: CipherChaCha20,
	}, nil
}

// NewXChaCha20 creates a new XChaCha20-Poly1305 cipher with a 24-byte nonce.
func NewXChaCha20(key []byte) (*ChaCha20, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: XChaCha20-Poly1305 needs 32 bytes, got %d", ErrKeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	return &ChaCha20{
		baseCipher: baseCipher{aead: aead},
		cipherType: CipherXChaCha20,
	}, nil
}

// Type returns the cipher type.
func (c *ChaCha20) Type() CipherType {
	return c.cipherType
}

// Seal encrypts plaintext with additional data.
func (c *ChaCha20) Seal(nonce, plaintext, additionalData []byte) ([]byte, error) {
	return c.seal(nonce, plaintext, additionalData)
}

// Open decrypts ciphertext with additional data.
func (c *ChaCha20) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	return c.open(nonce, ciphertext, additionalData)
}
