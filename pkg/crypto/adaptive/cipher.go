// Package adaptive provides the AEAD ciphers used to seal session data.
package adaptive

import (
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAES128GCM CipherType = "aes-128-gcm"
	CipherAES192GCM CipherType = "aes-192-gcm"
	CipherAES256GCM CipherType = "aes-256-gcm"
	CipherChaCha20  CipherType = "chacha20-poly1305"
	CipherXChaCha20 CipherType = "xchacha20-poly1305"
)

// Cipher errors.
var (
	ErrUnknownCipher = errors.New("adaptive: unknown cipher type")
	ErrKeySize       = errors.New("adaptive: invalid key size")
	ErrNonceSize     = errors.New("adaptive: invalid nonce size")
	ErrShortRead     = errors.New("adaptive: short read from randomness source")
)

var supported = []CipherType{
	CipherAES128GCM,
	CipherAES192GCM,
	CipherAES256GCM,
	CipherChaCha20,
	CipherXChaCha20,
}

// Supported returns the closed set of cipher types.
func Supported() []CipherType {
	out := make([]CipherType, len(supported))
	copy(out, supported)
	return out
}

// ParseCipherType converts a configured name to a CipherType.
// Matching is case-insensitive; "aes-gcm" is accepted as an alias for aes-256-gcm.
func ParseCipherType(name string) (CipherType, error) {
	n := CipherType(strings.ToLower(strings.TrimSpace(name)))
	if n == "aes-gcm" {
		return CipherAES256GCM, nil
	}
	if n.Valid() {
		return n, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCipher, name)
}

// Valid reports whether t is in the supported set.
func (t CipherType) Valid() bool {
	for _, s := range supported {
		if s == t {
			return true
		}
	}
	return false
}

// KeySize returns the key length in bytes required by the cipher.
func (t CipherType) KeySize() int {
	switch t {
	case CipherAES128GCM:
		return 16
	case CipherAES192GCM:
		return 24
	case CipherAES256GCM, CipherChaCha20, CipherXChaCha20:
		return 32
	default:
		return 0
	}
}

// NonceSize returns the nonce length in bytes used by the cipher.
func (t CipherType) NonceSize() int {
	switch t {
	case CipherXChaCha20:
		return 24
	case CipherAES128GCM, CipherAES192GCM, CipherAES256GCM, CipherChaCha20:
		return 12
	default:
		return 0
	}
}

// Cipher provides authenticated encryption with an explicit nonce.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Seal encrypts and authenticates plaintext and additionalData.
	Seal(nonce, plaintext, additionalData []byte) ([]byte, error)

	// Open authenticates and decrypts ciphertext.
	Open(nonce, ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// New creates a cipher of the preferred type for this platform.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, Preferred())
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAES128GCM, CipherAES192GCM, CipherAES256GCM:
		if len(key) != cipherType.KeySize() {
			return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrKeySize, cipherType, cipherType.KeySize(), len(key))
		}
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	case CipherXChaCha20:
		return NewXChaCha20(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, cipherType)
	}
}

// Preferred returns aes-256-gcm where Go uses hardware AES, chacha20-poly1305 otherwise.
func Preferred() CipherType {
	if hasAESNI() {
		return CipherAES256GCM
	}
	return CipherChaCha20
}

// NewNonce reads a nonce of the given size from r.
func NewNonce(r io.Reader, size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrNonceSize
	}
	nonce := make([]byte, size)
	n, err := io.ReadFull(r, nonce)
	if err != nil {
		if n < size && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)) {
			return nil, ErrShortRead
		}
		return nil, err
	}
	return nonce, nil
}

// hasAESNI checks if AES hardware acceleration is likely available.
// Go uses AES-NI on amd64 and the ARMv8 crypto extensions on arm64.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

// baseCipher provides common functionality for ciphers.
type baseCipher struct {
	aead cipher.AEAD
}

// NonceSize returns the nonce size in bytes.
func (c *baseCipher) NonceSize() int {
	return c.aead.NonceSize()
}

// Overhead returns the authentication tag size in bytes.
func (c *baseCipher) Overhead() int {
	return c.aead.Overhead()
}

func (c *baseCipher) seal(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrNonceSize
	}
	return c.aead.Seal(nil, nonce, plaintext, additionalData), nil
}

func (c *baseCipher) open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrNonceSize
	}
	if len(ciphertext) < c.aead.Overhead() {
		return nil, errors.New("adaptive: ciphertext too short")
	}
	return c.aead.Open(nil, nonce, ciphertext, additionalData)
}
