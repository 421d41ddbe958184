// Package crypto seals personal data such as phone numbers before it is
// written to the database. Values are AES-256-GCM encrypted and carry a
// version prefix so rows written without a key stay readable.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const sealedPrefix = "v1:"

var (
	// ErrInvalidKey is returned for keys that are not 32 raw bytes or 64 hex chars
	ErrInvalidKey = errors.New("encryption key must be 32 bytes or 64 hex characters")
	// ErrCiphertextTooShort is returned when a sealed value is shorter than the nonce
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrOpenFailed is returned when a sealed value was tampered with or sealed under another key
	ErrOpenFailed = errors.New("failed to open sealed value")
)

// Sealer encrypts and decrypts single field values
type Sealer struct {
	gcm cipher.AEAD
}

// ParseKey accepts a 32-byte key given raw or hex encoded
func ParseKey(secret string) ([]byte, error) {
	switch len(secret) {
	case 32:
		return []byte(secret), nil
	case 64:
		key, err := hex.DecodeString(secret)
		if err != nil {
			return nil, ErrInvalidKey
		}
		return key, nil
	}
	return nil, ErrInvalidKey
}

// NewSealer creates a Sealer from a secret accepted by ParseKey
func NewSealer(secret string) (*Sealer, error) {
	key, err := ParseKey(secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

// IsSealed reports whether value was produced by Seal
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// Seal encrypts plaintext. Empty input stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value from Seal. Values without the version prefix are
// returned unchanged.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}

	nonceSize := s.gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := s.gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(plaintext), nil
}

// MaskPhone keeps the last four digits, for logs
func MaskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + string(digits[len(digits)-4:])
}
