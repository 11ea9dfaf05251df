// Package crypt derives storage identifiers and encryption keys from an
// application secret and seals session data in an AEAD envelope.
//
// Derivation:
//
//	appKey     = hex(hash(secret))
//	identifier = hex(hash(sessionID ++ appKey))
//	material   = hash(appKey ++ sessionID)
//	key        = HKDF-SHA256-Expand(material, "ssess session key")[:KeySize]
//
// The identifier and the key material hash the same inputs in opposite
// order, so knowing an identifier (for example from a directory listing)
// gives no information about the key.
//
// Envelope:
//
//	{"data": base64(ciphertext || tag), "iv": base64(nonce)}
//
// A fresh nonce is drawn for every Encrypt. The cipher name is bound as
// additional authenticated data, so an envelope sealed under one cipher
// never opens under another.
package crypt
