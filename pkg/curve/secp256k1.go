// Package curve wraps the secp256k1 group for the OPRF scalar field
// (spec.md section 3: "a 255-bit curve scalar field used only for PRF"),
// in the same style as the teacher's pkg/math/curve.Secp256k1 wrapper
// around github.com/decred/dcrd/dcrec/secp256k1/v4.
package curve

import (
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Scalar is an element of the secp256k1 scalar field.
type Scalar struct {
	v secp256k1.ModNScalar
}

// Point is a point on the secp256k1 curve.
type Point struct {
	v secp256k1.JacobianPoint
}

// NewScalar returns the zero scalar.
func NewScalar() *Scalar { return &Scalar{} }

// RandomScalar draws a uniformly random non-zero scalar.
func RandomScalar(rand io.Reader) (*Scalar, error) {
	var buf [32]byte
	for {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return nil, fmt.Errorf("curve: random scalar: %w", err)
		}
		s := &Scalar{}
		overflow := s.v.SetBytes((*[32]byte)(&buf))
		if overflow == 0 && !s.v.IsZero() {
			return s, nil
		}
	}
}

// Add returns s + other.
func (s *Scalar) Add(other *Scalar) *Scalar {
	out := *s
	out.v.Add(&other.v)
	return &out
}

// Sub returns s - other.
func (s *Scalar) Sub(other *Scalar) *Scalar {
	neg := *other
	neg.v.Negate()
	out := *s
	out.v.Add(&neg.v)
	return &out
}

// Neg returns -s.
func (s *Scalar) Neg() *Scalar {
	out := *s
	out.v.Negate()
	return &out
}

// Mul returns s * other.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	out := *s
	out.v.Mul(&other.v)
	return &out
}

// Inverse returns s^-1. Panics if s is zero, as with any field element.
func (s *Scalar) Inverse() *Scalar {
	out := *s
	out.v.InverseNonConst()
	return &out
}

// IsZero reports whether s is the additive identity.
func (s *Scalar) IsZero() bool { return s.v.IsZero() }

// Equal reports whether s and other represent the same scalar.
func (s *Scalar) Equal(other *Scalar) bool { return s.v.Equals(&other.v) }

// MarshalBinary encodes the scalar as 32 bytes, big-endian.
func (s *Scalar) MarshalBinary() ([]byte, error) {
	out := s.v.Bytes()
	return out[:], nil
}

// UnmarshalBinary decodes a 32-byte big-endian scalar.
func (s *Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("curve: expected 32-byte scalar, got %d", len(data))
	}
	var arr [32]byte
	copy(arr[:], data)
	s.v.SetBytes(&arr)
	return nil
}

// Size is the canonical encoded width of a scalar, 32 bytes.
func (s *Scalar) Size() int { return 32 }

// ActOnBase returns s * G, the curve's base point.
func (s *Scalar) ActOnBase() *Point {
	var p Point
	secp256k1.ScalarBaseMultNonConst(&s.v, &p.v)
	p.v.ToAffine()
	return &p
}

// Act returns s * p.
func (s *Scalar) Act(p *Point) *Point {
	var out Point
	secp256k1.ScalarMultNonConst(&s.v, &p.v, &out.v)
	out.v.ToAffine()
	return &out
}

// NewPoint returns the point at infinity.
func NewPoint() *Point { return &Point{} }

// Add returns p + other.
func (p *Point) Add(other *Point) *Point {
	var out Point
	secp256k1.AddNonConst(&p.v, &other.v, &out.v)
	out.v.ToAffine()
	return &out
}

// Equal reports whether p and other represent the same curve point.
func (p *Point) Equal(other *Point) bool {
	a, b := p.v, other.v
	a.ToAffine()
	b.ToAffine()
	return a.X.Equals(&b.X) && a.Y.Equals(&b.Y)
}

// MarshalBinary encodes the point in 33-byte compressed form.
func (p *Point) MarshalBinary() ([]byte, error) {
	p.v.ToAffine()
	x, y := p.v.X, p.v.Y
	pk := secp256k1.NewPublicKey(&x, &y)
	return pk.SerializeCompressed(), nil
}

// UnmarshalBinary decodes a 33-byte compressed point.
func (p *Point) UnmarshalBinary(data []byte) error {
	pk, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return fmt.Errorf("curve: parse point: %w", err)
	}
	pk.AsJacobian(&p.v)
	return nil
}
