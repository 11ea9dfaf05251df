package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/pkg/crypto/adaptive"
	"github.com/yndnr/ssess-go/pkg/crypto/digest"
)

const (
	// DefaultHash is the hash used when none is configured.
	DefaultHash = digest.SHA512

	// DefaultCipher is the cipher used when none is configured.
	DefaultCipher = adaptive.CipherAES128GCM
)

var keyInfo = []byte("ssess session key")

// Provider turns session ids into storage identifiers and seals session data.
// A Provider is immutable after New and safe for concurrent use.
type Provider struct {
	hash   digest.Algorithm
	cipher adaptive.CipherType
	appKey []byte
	rand   io.Reader
}

// Option configures a Provider.
type Option func(*Provider)

// WithRandReader sets the nonce source. Defaults to crypto/rand.Reader.
func WithRandReader(r io.Reader) Option {
	return func(p *Provider) {
		if r != nil {
			p.rand = r
		}
	}
}

// New creates a Provider. The secret is digested immediately and not retained.
func New(secret []byte, hashAlg digest.Algorithm, cipherAlg adaptive.CipherType, opts ...Option) (*Provider, error) {
	if !hashAlg.Valid() {
		return nil, domain.ErrUnknownHashAlgorithm.WithDetails(string(hashAlg))
	}
	if !cipherAlg.Valid() {
		return nil, domain.ErrUnknownEncryptionAlgorithm.WithDetails(string(cipherAlg))
	}
	if len(secret) == 0 {
		return nil, domain.ErrUnableToHash.WithDetails("empty application secret")
	}

	appKey, err := digest.SumHex(hashAlg, secret)
	if err != nil {
		return nil, domain.ErrUnableToHash.WithCause(err)
	}

	p := &Provider{
		hash:   hashAlg,
		cipher: cipherAlg,
		appKey: []byte(appKey),
		rand:   rand.Reader,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewFromNames parses algorithm names before calling New.
func NewFromNames(secret []byte, hashName, cipherName string, opts ...Option) (*Provider, error) {
	hashAlg, err := digest.ParseAlgorithm(hashName)
	if err != nil {
		return nil, domain.ErrUnknownHashAlgorithm.WithDetails(hashName)
	}
	cipherAlg, err := adaptive.ParseCipherType(cipherName)
	if err != nil {
		return nil, domain.ErrUnknownEncryptionAlgorithm.WithDetails(cipherName)
	}
	return New(secret, hashAlg, cipherAlg, opts...)
}

// HashAlgorithm returns the configured hash.
func (p *Provider) HashAlgorithm() digest.Algorithm { return p.hash }

// CipherType returns the configured cipher.
func (p *Provider) CipherType() adaptive.CipherType { return p.cipher }

// MakeIdentifier returns the storage identifier for a session id.
func (p *Provider) MakeIdentifier(sessionID string) string {
	// Algorithm was validated in New, so SumHex cannot fail here.
	id, _ := digest.SumHex(p.hash, []byte(sessionID), p.appKey)
	return id
}

// deriveKey returns the cipher key for a session id.
func (p *Provider) deriveKey(sessionID string) ([]byte, error) {
	material, err := digest.Sum(p.hash, p.appKey, []byte(sessionID))
	if err != nil {
		return nil, err
	}
	key := make([]byte, p.cipher.KeySize())
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, material, keyInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}

func (p *Provider) newCipher(sessionID string) (adaptive.Cipher, error) {
	key, err := p.deriveKey(sessionID)
	if err != nil {
		return nil, err
	}
	return adaptive.NewWithType(key, p.cipher)
}
