// Package cookie keeps the storefront cart in sealed HTTP cookies.
package cookie

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrInvalidSeal is returned for values that were not sealed with this key
var ErrInvalidSeal = errors.New("cookie: invalid sealed value")

// Sealer encrypts and authenticates cookie values with NaCl secretbox.
// Each tenant gets its own key derived from the server secret with HKDF,
// so a cookie issued for one tenant does not open for another.
type Sealer struct {
	secret []byte
}

// NewSealer creates a Sealer from the configured cookie secret
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < 32 {
		return nil, errors.New("cookie: secret must be at least 32 bytes")
	}
	return &Sealer{secret: []byte(secret)}, nil
}

func (s *Sealer) key(scope string) (*[32]byte, error) {
	var key [32]byte
	r := hkdf.New(sha256.New, s.secret, nil, []byte("bizhub cart cookie v1|"+scope))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return nil, fmt.Errorf("cookie: derive key: %w", err)
	}
	return &key, nil
}

// Seal encrypts plaintext for scope and returns a URL-safe string
func (s *Sealer) Seal(scope string, plaintext []byte) (string, error) {
	key, err := s.key(scope)
	if err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("cookie: nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], plaintext, &nonce, key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

// Open reverses Seal
func (s *Sealer) Open(scope, sealed string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return nil, ErrInvalidSeal
	}
	key, err := s.key(scope)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrInvalidSeal
	}
	return plain, nil
}
