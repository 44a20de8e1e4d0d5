package curve

import (
	"fmt"
	"io"

	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/hash"
)

// ScalarElement adapts *Scalar to field.Element so the OPRF protocol
// (pkg/protocol/oprf) can drive the same Multiply/Reveal/Reshare gadgets
// used throughout over the curve's scalar field instead of Fp32/Fp61
// (spec.md section 3: "a 255-bit curve scalar field used only for PRF").
type ScalarElement struct {
	s *Scalar
}

// WrapScalar builds a ScalarElement around a *Scalar.
func WrapScalar(s *Scalar) ScalarElement { return ScalarElement{s: s} }

// Unwrap returns the underlying *Scalar.
func (e ScalarElement) Unwrap() *Scalar { return e.s }

func (e ScalarElement) Add(o field.Element) field.Element {
	return ScalarElement{s: e.s.Add(o.(ScalarElement).s)}
}

func (e ScalarElement) Sub(o field.Element) field.Element {
	return ScalarElement{s: e.s.Sub(o.(ScalarElement).s)}
}

func (e ScalarElement) Mul(o field.Element) field.Element {
	return ScalarElement{s: e.s.Mul(o.(ScalarElement).s)}
}

func (e ScalarElement) Neg() field.Element { return ScalarElement{s: e.s.Neg()} }

func (e ScalarElement) Inverse() field.Element { return ScalarElement{s: e.s.Inverse()} }

func (e ScalarElement) IsZero() bool { return e.s.IsZero() }

func (e ScalarElement) Equal(o field.Element) bool { return e.s.Equal(o.(ScalarElement).s) }

func (e ScalarElement) MarshalBinary() ([]byte, error) { return e.s.MarshalBinary() }

func (e ScalarElement) UnmarshalBinary(data []byte) error { return e.s.UnmarshalBinary(data) }

func (e ScalarElement) Size() int { return e.s.Size() }

// scalarField is the field.Field singleton for the secp256k1 scalar
// field.
type scalarField struct{}

// ScalarField is the shared field.Field value for OPRF contexts.
var ScalarField field.Field = scalarField{}

func (scalarField) Zero() field.Element { return ScalarElement{s: NewScalar()} }

func (scalarField) Random(r io.Reader) (field.Element, error) {
	s, err := RandomScalar(r)
	if err != nil {
		return nil, fmt.Errorf("curve: scalar field random: %w", err)
	}
	return ScalarElement{s: s}, nil
}

func (scalarField) FromUint64(v uint64) field.Element {
	var buf [32]byte
	for i := 0; i < 8; i++ {
		buf[31-i] = byte(v >> (8 * i))
	}
	s := NewScalar()
	if err := s.UnmarshalBinary(buf[:]); err != nil {
		panic(fmt.Sprintf("curve: scalar field from uint64: %v", err))
	}
	return ScalarElement{s: s}
}

func (scalarField) ElementSize() int { return 32 }

func (scalarField) Name() string { return "secp256k1-scalar" }

// HashToScalar deterministically maps arbitrary bytes (a match key) into
// the scalar field, giving the "H(match_key)" input to the OPRF
// evaluation (spec.md section 4.7). Hashing to a scalar and then acting
// on the base point (rather than a full hash-to-curve construction) keeps
// this grounded in the same keyed-BLAKE3 primitive pkg/prss already uses,
// at the cost of one extra base-point multiplication per match key.
func HashToScalar(matchKey []byte) (*Scalar, error) {
	h := hash.New()
	if err := h.WriteAny([]byte("ipa-oprf-hash-to-scalar")); err != nil {
		return nil, err
	}
	if err := h.WriteAny(matchKey); err != nil {
		return nil, err
	}
	digest := h.Sum()
	s := NewScalar()
	// A raw 32-byte digest may exceed the scalar modulus; SetBytes
	// reduces it, which is fine since indistinguishability from uniform
	// only needs to hold up to negligible statistical bias.
	s.v.SetBytes(&digest)
	return s, nil
}
