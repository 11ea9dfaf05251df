// Package digest provides the closed set of hash functions used to derive
// session identifiers and encryption keys.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm identifies a hash function.
type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	SHA384     Algorithm = "sha384"
	SHA512     Algorithm = "sha512"
	SHA512_256 Algorithm = "sha512-256"
	SHA3_256   Algorithm = "sha3-256"
	SHA3_512   Algorithm = "sha3-512"
	BLAKE2b256 Algorithm = "blake2b-256"
	BLAKE2b512 Algorithm = "blake2b-512"
)

// ErrUnknownAlgorithm is returned for names outside the supported set.
var ErrUnknownAlgorithm = errors.New("digest: unknown hash algorithm")

var supported = []Algorithm{
	SHA256, SHA384, SHA512, SHA512_256,
	SHA3_256, SHA3_512,
	BLAKE2b256, BLAKE2b512,
}

// Supported returns the closed set of algorithms.
func Supported() []Algorithm {
	out := make([]Algorithm, len(supported))
	copy(out, supported)
	return out
}

// ParseAlgorithm converts a configured name to an Algorithm.
// Matching ignores case and a dash after "sha" ("SHA-512" == "sha512").
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(n, "sha-") {
		n = "sha" + n[len("sha-"):]
	}
	a := Algorithm(n)
	if a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Valid reports whether a is in the supported set.
func (a Algorithm) Valid() bool {
	for _, s := range supported {
		if s == a {
			return true
		}
	}
	return false
}

// Size returns the digest length in bytes, or 0 for an unknown algorithm.
func (a Algorithm) Size() int {
	switch a {
	case SHA256, SHA512_256, SHA3_256, BLAKE2b256:
		return 32
	case SHA384:
		return 48
	case SHA512, SHA3_512, BLAKE2b512:
		return 64
	default:
		return 0
	}
}

// New returns a fresh hash.Hash for a.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	case SHA512_256:
		return sha512.New512_256(), nil
	case SHA3_256:
		return sha3.New256(), nil
	case SHA3_512:
		return sha3.New512(), nil
	case BLAKE2b256:
		return blake2b.New256(nil)
	case BLAKE2b512:
		return blake2b.New512(nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// Sum hashes the concatenation of parts.
func Sum(a Algorithm, parts ...[]byte) ([]byte, error) {
	h, err := a.New()
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil), nil
}

// SumHex hashes the concatenation of parts and returns lowercase hex.
func SumHex(a Algorithm, parts ...[]byte) (string, error) {
	sum, err := Sum(a, parts...)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// Equal compares two hex digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
