// Package adaptive provides the AEAD ciphers used to seal session data.
//
// The supported set is closed and enumerated by CipherType:
//
//   - aes-128-gcm, aes-192-gcm, aes-256-gcm: preferred when the CPU has AES support
//   - chacha20-poly1305: fallback for systems without AES acceleration
//   - xchacha20-poly1305: 24-byte nonces, safe for very large write volumes
//
// Unlike a nonce-prefixed blob, Seal and Open take the nonce explicitly so
// callers can store it in a separate envelope field.
//
// Usage:
//
//	c, err := adaptive.NewWithType(key, adaptive.CipherAES256GCM)
//	nonce, err := adaptive.NewNonce(rand.Reader, c.NonceSize())
//	sealed, err := c.Seal(nonce, plaintext, aad)
//	plaintext, err := c.Open(nonce, sealed, aad)
package adaptive
