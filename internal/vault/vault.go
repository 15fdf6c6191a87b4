// Package vault encrypts private keys at rest with Fernet tokens, the same
// format existing wallet databases were written in.
package vault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fernet/fernet-go"
)

var (
	ErrMissingKey = errors.New("encryption key is not set (COINTOOLS_ENC_KEY)")
	ErrInvalidKey = errors.New("invalid encryption key")
	ErrDecrypt    = errors.New("failed to decrypt: wrong key or corrupted data")
)

// Vault encrypts and decrypts with one Fernet key.
type Vault struct {
	key *fernet.Key
}

// GenerateKey returns a fresh url-safe base64 Fernet key.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return k.Encode(), nil
}

// New parses an encoded Fernet key.
func New(encodedKey string) (*Vault, error) {
	encodedKey = strings.TrimSpace(encodedKey)
	if encodedKey == "" {
		return nil, ErrMissingKey
	}
	k, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &Vault{key: k}, nil
}

// Encrypt seals plaintext into a Fernet token.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	token, err := fernet.EncryptAndSign(plaintext, v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return token, nil
}

// Decrypt opens a Fernet token. Tokens never expire.
func (v *Vault) Decrypt(token []byte) ([]byte, error) {
	plaintext := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{v.key})
	if plaintext == nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// Rotate returns a function that re-encrypts tokens of v under next.
func (v *Vault) Rotate(next *Vault) func([]byte) ([]byte, error) {
	return func(token []byte) ([]byte, error) {
		plaintext, err := v.Decrypt(token)
		if err != nil {
			return nil, err
		}
		return next.Encrypt(plaintext)
	}
}
