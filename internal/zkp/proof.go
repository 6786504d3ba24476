// Package zkp implements the Schnorr-style zero-knowledge proof of
// knowledge of a discrete logarithm used for password login.
//
// The client proves knowledge of x for the registered commitment Y = g^x.
// The server-issued challenge c is folded into the effective challenge
// e = H(group, Y, R, c, bind) so that a response cannot be precomputed for
// a commitment R chosen after c is known.
package zkp

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/cryptox"
	"golang.org/x/crypto/sha3"
)

const transcriptDomain = "zkkeeper/zkp/v1"

var ErrProofRejected = errors.New("proof rejected")

// Proof is the (R, s) pair sent in response to a challenge.
type Proof struct {
	R []byte `json:"r"`
	S []byte `json:"s"`
}

// Engine runs key registration, proof construction and verification over a
// single Group.
type Engine struct {
	group Group
}

func NewEngine(g Group) *Engine {
	if g == nil {
		g = Ristretto255()
	}
	return &Engine{group: g}
}

func (e *Engine) Group() Group { return e.group }

// DeriveSecret maps a root key to the proof secret x. The mapping is
// deterministic so a device holding the password can recompute x without
// the server.
func (e *Engine) DeriveSecret(rootKey []byte) ([]byte, error) {
	seed, err := cryptox.DeriveSubkey(rootKey, common.LabelProofSecret, e.group.Name(), e.group.UniformSize())
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(seed)

	x, err := e.group.ReduceScalar(seed)
	if err != nil {
		return nil, err
	}
	if e.group.IsZeroScalar(x) {
		return nil, ErrZeroScalar
	}
	return x, nil
}

// RegisterKeyPair returns the public commitment Y = g^x.
func (e *Engine) RegisterKeyPair(x []byte) ([]byte, error) {
	if err := e.group.ValidateScalar(x); err != nil {
		return nil, err
	}
	if e.group.IsZeroScalar(x) {
		return nil, ErrZeroScalar
	}
	return e.group.BaseMult(x)
}

// ValidateCommitment checks a Y received at registration.
func (e *Engine) ValidateCommitment(y []byte) error {
	if err := e.group.ValidateElement(y); err != nil {
		return err
	}
	if e.group.IsIdentity(y) {
		return ErrIdentity
	}
	return nil
}

// ConstructProof answers challenge c. A fresh commitment scalar r is drawn
// on every call and wiped before returning.
func (e *Engine) ConstructProof(x, c, bind []byte) (Proof, error) {
	y, err := e.RegisterKeyPair(x)
	if err != nil {
		return Proof{}, err
	}
	if err := e.group.ValidateScalar(c); err != nil {
		return Proof{}, err
	}

	r, err := e.group.RandomScalar()
	if err != nil {
		return Proof{}, err
	}
	defer common.WipeByteArray(r)

	R, err := e.group.BaseMult(r)
	if err != nil {
		return Proof{}, err
	}

	ch, err := e.challenge(y, R, c, bind)
	if err != nil {
		return Proof{}, err
	}

	s, err := e.group.MulAdd(r, ch, x)
	if err != nil {
		return Proof{}, err
	}
	return Proof{R: R, S: s}, nil
}

// Verify reports whether p proves knowledge of log_g(y) for challenge c.
// Malformed inputs are rejected the same way as a wrong proof.
func (e *Engine) Verify(y, c, bind []byte, p Proof) bool {
	return e.Check(y, c, bind, p) == nil
}

// Check is Verify with the reason attached, for server-side logging.
func (e *Engine) Check(y, c, bind []byte, p Proof) error {
	if err := e.ValidateCommitment(y); err != nil {
		return fmt.Errorf("%w: commitment: %w", ErrProofRejected, err)
	}
	if err := e.group.ValidateScalar(c); err != nil {
		return fmt.Errorf("%w: challenge: %w", ErrProofRejected, err)
	}
	if err := e.group.ValidateElement(p.R); err != nil {
		return fmt.Errorf("%w: R: %w", ErrProofRejected, err)
	}
	if err := e.group.ValidateScalar(p.S); err != nil {
		return fmt.Errorf("%w: s: %w", ErrProofRejected, err)
	}

	ch, err := e.challenge(y, p.R, c, bind)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofRejected, err)
	}

	lhs, err := e.group.BaseMult(p.S)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofRejected, err)
	}
	yc, err := e.group.Mult(ch, y)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofRejected, err)
	}
	rhs, err := e.group.Add(p.R, yc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofRejected, err)
	}

	if subtle.ConstantTimeCompare(lhs, rhs) != 1 {
		return ErrProofRejected
	}
	return nil
}

// challenge hashes the transcript to the effective challenge scalar.
func (e *Engine) challenge(y, R, c, bind []byte) ([]byte, error) {
	h := sha3.NewShake256()
	writeField(h, []byte(transcriptDomain))
	writeField(h, []byte(e.group.Name()))
	writeField(h, y)
	writeField(h, R)
	writeField(h, c)
	writeField(h, bind)

	out := make([]byte, e.group.UniformSize())
	if _, err := h.Read(out); err != nil {
		return nil, err
	}
	return e.group.ReduceScalar(out)
}

type writer interface {
	Write(p []byte) (int, error)
}

func writeField(w writer, b []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	_, _ = w.Write(l[:])
	_, _ = w.Write(b)
}

// Binding returns the transcript binding for a challenge: its id and the
// normalized username it was issued for.
func Binding(challengeID, username string) []byte {
	b := make([]byte, 0, len(challengeID)+1+len(username))
	b = append(b, challengeID...)
	b = append(b, 0)
	b = append(b, username...)
	return b
}
