package zkp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const modpName = "modp2048"

// RFC 3526 group 14.
const modp2048Hex = "" +
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

type modpGroup struct {
	p, q, g *big.Int
	size    int
}

var modp2048 = newMODP(modp2048Hex)

func newMODP(hexP string) *modpGroup {
	p, ok := new(big.Int).SetString(hexP, 16)
	if !ok {
		panic("zkp: bad modulus")
	}
	q := new(big.Int).Rsh(new(big.Int).Sub(p, big.NewInt(1)), 1)
	return &modpGroup{p: p, q: q, g: big.NewInt(2), size: (p.BitLen() + 7) / 8}
}

// MODP2048 returns the prime-order subgroup of the RFC 3526 2048-bit MODP
// group with generator 2.
//
// It is a reference implementation built on math/big, whose Exp is not
// constant time. Use it for interoperability tests only.
func MODP2048() Group { return modp2048 }

func (m *modpGroup) Name() string     { return modpName }
func (m *modpGroup) ScalarSize() int  { return m.size }
func (m *modpGroup) ElementSize() int { return m.size }
func (m *modpGroup) UniformSize() int { return m.size + 16 }

func (m *modpGroup) encode(v *big.Int) []byte {
	return v.FillBytes(make([]byte, m.size))
}

func (m *modpGroup) scalar(b []byte) (*big.Int, error) {
	if len(b) != m.size {
		return nil, ErrInvalidScalar
	}
	s := new(big.Int).SetBytes(b)
	if s.Cmp(m.q) >= 0 {
		return nil, ErrInvalidScalar
	}
	return s, nil
}

func (m *modpGroup) element(b []byte) (*big.Int, error) {
	if len(b) != m.size {
		return nil, ErrInvalidElement
	}
	y := new(big.Int).SetBytes(b)
	if y.Sign() <= 0 || y.Cmp(m.p) >= 0 {
		return nil, ErrInvalidElement
	}
	// subgroup membership
	if new(big.Int).Exp(y, m.q, m.p).Cmp(big.NewInt(1)) != 0 {
		return nil, ErrInvalidElement
	}
	return y, nil
}

func (m *modpGroup) RandomScalar() ([]byte, error) {
	s, err := rand.Int(rand.Reader, m.q)
	if err != nil {
		return nil, fmt.Errorf("random scalar: %w", err)
	}
	return m.encode(s), nil
}

func (m *modpGroup) ReduceScalar(uniform []byte) ([]byte, error) {
	if len(uniform) != m.UniformSize() {
		return nil, ErrInvalidScalar
	}
	s := new(big.Int).SetBytes(uniform)
	return m.encode(s.Mod(s, m.q)), nil
}

func (m *modpGroup) ValidateScalar(s []byte) error {
	_, err := m.scalar(s)
	return err
}

func (m *modpGroup) IsZeroScalar(b []byte) bool {
	s, err := m.scalar(b)
	return err == nil && s.Sign() == 0
}

func (m *modpGroup) MulAdd(r, e, x []byte) ([]byte, error) {
	rs, err := m.scalar(r)
	if err != nil {
		return nil, err
	}
	es, err := m.scalar(e)
	if err != nil {
		return nil, err
	}
	xs, err := m.scalar(x)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(es, xs)
	out.Add(out, rs)
	return m.encode(out.Mod(out, m.q)), nil
}

func (m *modpGroup) ValidateElement(el []byte) error {
	_, err := m.element(el)
	return err
}

func (m *modpGroup) IsIdentity(b []byte) bool {
	y, err := m.element(b)
	return err == nil && y.Cmp(big.NewInt(1)) == 0
}

func (m *modpGroup) BaseMult(s []byte) ([]byte, error) {
	sc, err := m.scalar(s)
	if err != nil {
		return nil, err
	}
	return m.encode(new(big.Int).Exp(m.g, sc, m.p)), nil
}

func (m *modpGroup) Mult(s, el []byte) ([]byte, error) {
	sc, err := m.scalar(s)
	if err != nil {
		return nil, err
	}
	y, err := m.element(el)
	if err != nil {
		return nil, err
	}
	return m.encode(new(big.Int).Exp(y, sc, m.p)), nil
}

func (m *modpGroup) Add(a, b []byte) ([]byte, error) {
	ya, err := m.element(a)
	if err != nil {
		return nil, err
	}
	yb, err := m.element(b)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(ya, yb)
	return m.encode(out.Mod(out, m.p)), nil
}
