package crypt

import (
	"encoding/base64"
	"encoding/json"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/pkg/crypto/adaptive"
)

// envelope is the serialized form of encrypted session data.
type envelope struct {
	Data string `json:"data"`
	IV   string `json:"iv"`
}

// Encrypt seals plaintext under the key derived for sessionID and returns
// the JSON envelope.
func (p *Provider) Encrypt(sessionID, plaintext string) (string, error) {
	c, err := p.newCipher(sessionID)
	if err != nil {
		return "", domain.ErrUnableToEncrypt.WithCause(err)
	}

	nonce, err := adaptive.NewNonce(p.rand, c.NonceSize())
	if err != nil {
		return "", domain.ErrUnableToGenerateRandomness.WithCause(err)
	}

	ciphertext, err := c.Seal(nonce, []byte(plaintext), p.aad())
	if err != nil {
		return "", domain.ErrUnableToEncrypt.WithCause(err)
	}

	out, err := json.Marshal(envelope{
		Data: base64.StdEncoding.EncodeToString(ciphertext),
		IV:   base64.StdEncoding.EncodeToString(nonce),
	})
	if err != nil {
		return "", domain.ErrUnableToEncrypt.WithCause(err)
	}
	return string(out), nil
}

// Decrypt opens an envelope produced by Encrypt for the same session id.
// An empty envelope decrypts to an empty string.
func (p *Provider) Decrypt(sessionID, sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(sealed), &env); err != nil {
		return "", domain.ErrUnableToDecrypt.WithDetails("malformed envelope").WithCause(err)
	}
	if env.Data == "" || env.IV == "" {
		return "", domain.ErrUnableToDecrypt.WithDetails("envelope missing data or iv")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return "", domain.ErrUnableToDecrypt.WithDetails("data is not base64").WithCause(err)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return "", domain.ErrUnableToDecrypt.WithDetails("iv is not base64").WithCause(err)
	}
	if len(nonce) != p.cipher.NonceSize() {
		return "", domain.ErrUnableToDecrypt.WithDetails("iv has wrong length")
	}

	c, err := p.newCipher(sessionID)
	if err != nil {
		return "", domain.ErrUnableToDecrypt.WithCause(err)
	}
	plaintext, err := c.Open(nonce, ciphertext, p.aad())
	if err != nil {
		return "", domain.ErrUnableToDecrypt.WithCause(err)
	}
	return string(plaintext), nil
}

func (p *Provider) aad() []byte {
	return []byte(p.cipher)
}
