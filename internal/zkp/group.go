package zkp

import "errors"

var (
	ErrInvalidScalar  = errors.New("invalid scalar encoding")
	ErrInvalidElement = errors.New("invalid group element encoding")
	ErrIdentity       = errors.New("identity element not allowed")
	ErrZeroScalar     = errors.New("zero scalar not allowed")
	ErrUnknownGroup   = errors.New("unknown group")
)

// Group is the prime-order group the proof runs in. Scalars and elements
// cross this boundary only in their canonical encodings, so a Group can be
// swapped without touching the protocol code above it.
//
// Implementations must reject non-canonical encodings and elements outside
// the prime-order subgroup.
type Group interface {
	Name() string

	ScalarSize() int
	ElementSize() int
	// UniformSize is the number of uniformly random bytes ReduceScalar
	// needs for a statistically uniform result.
	UniformSize() int

	RandomScalar() ([]byte, error)
	ReduceScalar(uniform []byte) ([]byte, error)
	ValidateScalar(s []byte) error
	IsZeroScalar(s []byte) bool
	// MulAdd returns r + e*x mod the group order.
	MulAdd(r, e, x []byte) ([]byte, error)

	ValidateElement(el []byte) error
	IsIdentity(el []byte) bool
	BaseMult(s []byte) ([]byte, error)
	Mult(s, el []byte) ([]byte, error)
	Add(a, b []byte) ([]byte, error)
}

// GroupByName resolves the identifiers stored with a credential.
func GroupByName(name string) (Group, error) {
	switch name {
	case "", ristrettoName:
		return Ristretto255(), nil
	case modpName:
		return MODP2048(), nil
	default:
		return nil, ErrUnknownGroup
	}
}
