// Package kdf turns a password, a per-user salt and stored cost parameters
// into a fixed 32-byte root key.
//
// Derivation is deterministic and side-effect free. The resulting RootKey
// lives in locked memory and must be destroyed once dependent keys have
// been derived from it.
package kdf

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	RootKeySize = 32
	SaltSize    = 16
	MinSaltSize = 16
	MaxSaltSize = 64
)

var (
	ErrInvalidSalt       = errors.New("invalid salt")
	ErrUnsupportedParams = errors.New("unsupported kdf parameters")
	ErrEmptyPassword     = errors.New("empty password")
	ErrKeyDestroyed      = errors.New("root key destroyed")
)

// NewSalt returns a fresh random salt of SaltSize bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// ValidateSalt checks the salt length bounds.
func ValidateSalt(salt []byte) error {
	if len(salt) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSalt)
	}
	if len(salt) < MinSaltSize || len(salt) > MaxSaltSize {
		return fmt.Errorf("%w: length %d", ErrInvalidSalt, len(salt))
	}
	return nil
}

// Derive computes the root key for password.
func Derive(password string, salt []byte, p Params) (*RootKey, error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)
	return DeriveBytes(pw, salt, p)
}

// DeriveBytes is Derive for callers that already hold the password as a
// byte slice. The slice is not modified.
func DeriveBytes(password, salt []byte, p Params) (*RootKey, error) {
	if err := ValidateSalt(salt); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}

	var raw []byte
	switch p.Algorithm {
	case Argon2id:
		raw = argon2.IDKey(password, salt, p.Iterations, p.MemoryKiB, p.Parallelism, RootKeySize)
	case PBKDF2SHA256:
		raw = pbkdf2.Key(password, salt, int(p.Iterations), RootKeySize, sha256.New)
	}

	return NewRootKey(raw), nil
}

// RootKey is the password-derived secret all other keys descend from.
type RootKey struct {
	buf *memguard.LockedBuffer
}

// NewRootKey moves b into locked memory. b is wiped.
func NewRootKey(b []byte) *RootKey {
	return &RootKey{buf: memguard.NewBufferFromBytes(b)}
}

// Bytes exposes the key material. The slice is only valid until Destroy.
func (k *RootKey) Bytes() ([]byte, error) {
	if k == nil || k.buf == nil || !k.buf.IsAlive() {
		return nil, ErrKeyDestroyed
	}
	return k.buf.Bytes(), nil
}

// Equal compares two keys in constant time. Destroyed keys are never equal.
func (k *RootKey) Equal(other *RootKey) bool {
	a, err := k.Bytes()
	if err != nil {
		return false
	}
	b, err := other.Bytes()
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Destroy wipes and unlocks the key. It is safe to call more than once.
func (k *RootKey) Destroy() {
	if k == nil || k.buf == nil {
		return
	}
	k.buf.Destroy()
}
