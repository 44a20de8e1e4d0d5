// Package field implements the finite field element types used by the
// replicated secret sharing layer: a small field for unit tests and a
// 32-bit prime field for production arithmetic. Both are backed by
// cronokirby/saferith's constant-time modular Nat type, following the
// same Nat-backed arithmetic style the teacher repo's curve scalar type
// uses (see pkg/math/curve.Secp256k1 in the reference corpus).
package field

import "io"

// Element is implemented by every concrete field's value type.
type Element interface {
	Add(Element) Element
	Sub(Element) Element
	Mul(Element) Element
	Neg() Element
	Inverse() Element
	IsZero() bool
	Equal(Element) bool

	// MarshalBinary returns the canonical fixed-width encoding of the
	// element: little-endian for this package's prime fields, while
	// curve.ScalarElement uses its curve library's 32-byte big-endian form.
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error

	// Size is the canonical encoded width in bytes.
	Size() int
}

// Field is implemented by a concrete prime field's zero-value factory.
type Field interface {
	Zero() Element
	Random(io.Reader) (Element, error)
	FromUint64(uint64) Element
	ElementSize() int
	Name() string
}
