// Package token provides session id and secret generation.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultLength is the default secret length in bytes.
const DefaultLength = 32

// SessionIDPrefix marks ids minted by this package.
const SessionIDPrefix = "ssid-"

// SessionIDLength is the length of a minted session id: prefix plus 26 ULID characters.
const SessionIDLength = len(SessionIDPrefix) + ulid.EncodedSize

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewSessionID mints a new session id.
// Format: ssid-{ulid_lowercase}, 31 characters total.
func NewSessionID() (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("token: mint session id: %w", err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// IsSessionID reports whether s has the shape of an id minted by NewSessionID.
func IsSessionID(s string) bool {
	if len(s) != SessionIDLength || !strings.HasPrefix(s, SessionIDPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(s[len(SessionIDPrefix):]))
	return err == nil
}

// Generate generates a cryptographically secure random secret.
//
// The returned value is Base64 RawURL encoded for safe use in config files and env vars.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength generates a secret with the specified byte length.
func GenerateWithLength(length int) (string, error) {
	b, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("token: invalid length %d", length)
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
