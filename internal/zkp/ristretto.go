package zkp

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/gtank/ristretto255"
)

const ristrettoName = "ristretto255"

type ristrettoGroup struct{}

// Ristretto255 returns the default group: a constant-time prime-order
// group over Curve25519.
func Ristretto255() Group { return ristrettoGroup{} }

func (ristrettoGroup) Name() string     { return ristrettoName }
func (ristrettoGroup) ScalarSize() int  { return 32 }
func (ristrettoGroup) ElementSize() int { return 32 }
func (ristrettoGroup) UniformSize() int { return 64 }

func (g ristrettoGroup) RandomScalar() ([]byte, error) {
	buf := make([]byte, g.UniformSize())
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("random scalar: %w", err)
	}
	return g.ReduceScalar(buf)
}

func (g ristrettoGroup) ReduceScalar(uniform []byte) ([]byte, error) {
	if len(uniform) != g.UniformSize() {
		return nil, ErrInvalidScalar
	}
	return ristretto255.NewScalar().FromUniformBytes(uniform).Encode(nil), nil
}

func (ristrettoGroup) scalar(b []byte) (*ristretto255.Scalar, error) {
	if len(b) != 32 {
		return nil, ErrInvalidScalar
	}
	s := ristretto255.NewScalar()
	if err := s.Decode(b); err != nil {
		return nil, ErrInvalidScalar
	}
	return s, nil
}

func (ristrettoGroup) element(b []byte) (*ristretto255.Element, error) {
	if len(b) != 32 {
		return nil, ErrInvalidElement
	}
	e := ristretto255.NewElement()
	if err := e.Decode(b); err != nil {
		return nil, ErrInvalidElement
	}
	return e, nil
}

func (g ristrettoGroup) ValidateScalar(s []byte) error {
	_, err := g.scalar(s)
	return err
}

func (g ristrettoGroup) IsZeroScalar(b []byte) bool {
	s, err := g.scalar(b)
	if err != nil {
		return false
	}
	return s.Equal(ristretto255.NewScalar()) == 1
}

func (g ristrettoGroup) MulAdd(r, e, x []byte) ([]byte, error) {
	rs, err := g.scalar(r)
	if err != nil {
		return nil, err
	}
	es, err := g.scalar(e)
	if err != nil {
		return nil, err
	}
	xs, err := g.scalar(x)
	if err != nil {
		return nil, err
	}
	out := ristretto255.NewScalar().Multiply(es, xs)
	out.Add(out, rs)
	return out.Encode(nil), nil
}

func (g ristrettoGroup) ValidateElement(el []byte) error {
	_, err := g.element(el)
	return err
}

func (g ristrettoGroup) IsIdentity(b []byte) bool {
	e, err := g.element(b)
	if err != nil {
		return false
	}
	return e.Equal(ristretto255.NewElement()) == 1
}

func (g ristrettoGroup) BaseMult(s []byte) ([]byte, error) {
	sc, err := g.scalar(s)
	if err != nil {
		return nil, err
	}
	return ristretto255.NewElement().ScalarBaseMult(sc).Encode(nil), nil
}

func (g ristrettoGroup) Mult(s, el []byte) ([]byte, error) {
	sc, err := g.scalar(s)
	if err != nil {
		return nil, err
	}
	e, err := g.element(el)
	if err != nil {
		return nil, err
	}
	return ristretto255.NewElement().ScalarMult(sc, e).Encode(nil), nil
}

func (g ristrettoGroup) Add(a, b []byte) ([]byte, error) {
	ea, err := g.element(a)
	if err != nil {
		return nil, err
	}
	eb, err := g.element(b)
	if err != nil {
		return nil, err
	}
	return ristretto255.NewElement().Add(ea, eb).Encode(nil), nil
}
