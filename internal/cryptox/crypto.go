// Package cryptox wraps the symmetric primitives shared by the backup and
// vault layers: AES-256-GCM with internally generated nonces and HKDF-SHA256
// subkey derivation.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

var (
	ErrInvalidKey   = errors.New("invalid key length")
	ErrInvalidNonce = errors.New("invalid nonce length")
	// ErrTagMismatch means the ciphertext, nonce or associated data was
	// altered, or the key is wrong.
	ErrTagMismatch = errors.New("authentication tag mismatch")
)

// randReader is swapped in tests.
var randReader io.Reader = rand.Reader

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under key with a fresh random nonce. Callers
// cannot supply a nonce. The returned ciphertext has the GCM tag appended.
func Seal(key, plaintext, aad []byte) (nonce, ciphertext []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, nil, fmt.Errorf("nonce: %w", err)
	}

	return nonce, aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open reverses Seal. Any authentication failure is reported as
// ErrTagMismatch and no plaintext is returned.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonce
	}
	if len(ciphertext) < TagSize {
		return nil, ErrTagMismatch
	}

	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrTagMismatch
	}
	return pt, nil
}

// DeriveSubkey expands secret into an n-byte key bound to label and
// context. Distinct labels give independent keys.
func DeriveSubkey(secret []byte, label, context string, n int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}

	info := make([]byte, 0, len(label)+1+len(context))
	info = append(info, label...)
	info = append(info, 0)
	info = append(info, context...)

	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), out); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return out, nil
}
