// Package adaptive provides the AEAD ciphers used to seal session data.
package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AESGCM implements AES-GCM authenticated encryption.
type AESGCM struct {
	baseCipher
	cipherType CipherType
}

// NewAESGCM creates a new AES-GCM cipher.
//
// The key length selects the variant: 16, 24 or 32 bytes for AES-128, AES-192 or AES-256.
func NewAESGCM(key []byte) (*AESGCM, error) {
	var t CipherType
	switch len(key) {
	case 16:
		t = CipherAES128GCM
	case 24:
		t = CipherAES192GCM
	case 32:
		t = CipherAES256GCM
	default:
		return nil, fmt.Errorf("%w: AES-GCM needs 16, 24 or 32 bytes, got %d", ErrKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{
		baseCipher: baseCipher{aead: aead},
		cipherType: t,
	}, nil
}

// Type returns the cipher type.
func (c *AESGCM) Type() CipherType {
	return c.cipherType
}

// Seal encrypts plaintext with additional data.
func (c *AESGCM) Seal(nonce, plaintext, additionalData []byte) ([]byte, error) {
	return c.seal(nonce, plaintext, additionalData)
}

// Open decrypts ciphertext with additional data.
func (c *AESGCM) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	return c.open(nonce, ciphertext, additionalData)
}
