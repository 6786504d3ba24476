// Package session keeps the logged-in user's password resident for a
// bounded time so vault writes can re-derive the vault key without
// prompting. The password lives in a memguard enclave, encrypted at rest
// in memory, and is only decrypted for the duration of a Use callback.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/awnumar/memguard"
)

var ErrNoSecret = errors.New("session secret not available")

type Secret struct {
	mu        sync.Mutex
	enclave   *memguard.Enclave
	username  string
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewSecret(ttl time.Duration) *Secret {
	return &Secret{ttl: ttl, now: time.Now}
}

// Set seals password for username and restarts the TTL. The password
// slice is wiped.
func (s *Secret) Set(username string, password []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(password) == 0 {
		s.clear()
		return
	}
	s.enclave = memguard.NewEnclave(password)
	s.username = username
	s.expiresAt = s.now().Add(s.ttl)
}

// Use opens the enclave and calls fn with the plaintext password. The
// plaintext is destroyed when fn returns; fn must not retain it. An
// expired secret is purged and reported as ErrNoSecret.
func (s *Secret) Use(fn func(username string, password []byte) error) error {
	s.mu.Lock()
	if !s.validLocked() {
		s.mu.Unlock()
		return ErrNoSecret
	}
	enclave, username := s.enclave, s.username
	s.mu.Unlock()

	buf, err := enclave.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()

	return fn(username, buf.Bytes())
}

// Username returns the owner of a live secret, or "" when none is held.
func (s *Secret) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked() {
		return ""
	}
	return s.username
}

func (s *Secret) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validLocked()
}

func (s *Secret) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Purge drops the secret immediately.
func (s *Secret) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Secret) validLocked() bool {
	if s.enclave == nil {
		return false
	}
	if !s.now().Before(s.expiresAt) {
		s.clear()
		return false
	}
	return true
}

func (s *Secret) clear() {
	s.enclave = nil
	s.username = ""
	s.expiresAt = time.Time{}
}
