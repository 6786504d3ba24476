package kdf

import (
	"encoding/json"
	"fmt"
)

// Algorithm names a password hashing function.
type Algorithm string

const (
	Argon2id     Algorithm = "argon2id"
	PBKDF2SHA256 Algorithm = "pbkdf2-sha256"
)

// Safe ranges. Values outside them are rejected before any hashing.
const (
	MinArgonTime        = 1
	MaxArgonTime        = 10
	MinArgonMemoryKiB   = 19 * 1024
	MaxArgonMemoryKiB   = 1024 * 1024
	MinArgonParallelism = 1
	MaxArgonParallelism = 16

	MinPBKDF2Iterations = 100_000
	MaxPBKDF2Iterations = 10_000_000
)

// Params is stored next to the salt in a credential and never changes for
// the lifetime of that credential.
type Params struct {
	Algorithm   Algorithm `json:"algorithm"`
	Iterations  uint32    `json:"iterations"`
	MemoryKiB   uint32    `json:"memory_kib,omitempty"`
	Parallelism uint8     `json:"parallelism,omitempty"`
}

// DefaultParams returns the Argon2id parameters used for new accounts.
func DefaultParams() Params {
	return Params{
		Algorithm:   Argon2id,
		Iterations:  3,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
	}
}

// PBKDF2Params returns the PBKDF2-HMAC-SHA256 fallback parameters.
func PBKDF2Params() Params {
	return Params{Algorithm: PBKDF2SHA256, Iterations: 600_000}
}

// ParamsFor returns the default parameters for a named algorithm.
func ParamsFor(name string) (Params, error) {
	switch Algorithm(name) {
	case Argon2id:
		return DefaultParams(), nil
	case PBKDF2SHA256:
		return PBKDF2Params(), nil
	default:
		return Params{}, fmt.Errorf("%w: unknown algorithm %q", ErrUnsupportedParams, name)
	}
}

func (p Params) Validate() error {
	switch p.Algorithm {
	case Argon2id:
		if p.Iterations < MinArgonTime || p.Iterations > MaxArgonTime {
			return fmt.Errorf("%w: argon2id time %d", ErrUnsupportedParams, p.Iterations)
		}
		if p.MemoryKiB < MinArgonMemoryKiB || p.MemoryKiB > MaxArgonMemoryKiB {
			return fmt.Errorf("%w: argon2id memory %d KiB", ErrUnsupportedParams, p.MemoryKiB)
		}
		if p.Parallelism < MinArgonParallelism || p.Parallelism > MaxArgonParallelism {
			return fmt.Errorf("%w: argon2id parallelism %d", ErrUnsupportedParams, p.Parallelism)
		}
	case PBKDF2SHA256:
		if p.Iterations < MinPBKDF2Iterations || p.Iterations > MaxPBKDF2Iterations {
			return fmt.Errorf("%w: pbkdf2 iterations %d", ErrUnsupportedParams, p.Iterations)
		}
		if p.MemoryKiB != 0 || p.Parallelism != 0 {
			return fmt.Errorf("%w: pbkdf2 takes no memory or parallelism", ErrUnsupportedParams)
		}
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrUnsupportedParams, p.Algorithm)
	}
	return nil
}

// Encode returns the canonical JSON form used for storage.
func (p Params) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeParams parses and validates the output of Encode.
func DecodeParams(s string) (Params, error) {
	var p Params
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Params{}, fmt.Errorf("%w: %w", ErrUnsupportedParams, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
