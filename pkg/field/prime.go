package field

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
)

// primeField is a generic Nat-backed prime field; Fp61 and Fp32 are two
// fixed instantiations of it (test field and production field, per
// spec.md section 3's "three concrete fields" data model).
type primeField struct {
	name    string
	modulus *saferith.Modulus
	// byteLen is the canonical fixed encoding width.
	byteLen int
}

func newPrimeField(name string, p uint64, byteLen int) *primeField {
	return &primeField{
		name:    name,
		modulus: saferith.ModulusFromUint64(p),
		byteLen: byteLen,
	}
}

// primeElement is a value of a primeField.
type primeElement struct {
	f   *primeField
	nat *saferith.Nat
}

func (f *primeField) Zero() Element {
	return &primeElement{f: f, nat: new(saferith.Nat).SetUint64(0)}
}

func (f *primeField) FromUint64(v uint64) Element {
	n := new(saferith.Nat).SetUint64(v)
	n.Mod(n, f.modulus)
	return &primeElement{f: f, nat: n}
}

func (f *primeField) Random(rand io.Reader) (Element, error) {
	buf := make([]byte, f.byteLen+8)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, fmt.Errorf("field %s: random: %w", f.name, err)
	}
	n := new(saferith.Nat).SetBytes(buf)
	n.Mod(n, f.modulus)
	return &primeElement{f: f, nat: n}, nil
}

func (f *primeField) ElementSize() int { return f.byteLen }
func (f *primeField) Name() string     { return f.name }

func (e *primeElement) checkSameField(other Element) *primeElement {
	o, ok := other.(*primeElement)
	if !ok || o.f != e.f {
		panic(fmt.Sprintf("field: mismatched element types in %s operation", e.f.name))
	}
	return o
}

func (e *primeElement) Add(other Element) Element {
	o := e.checkSameField(other)
	n := new(saferith.Nat).ModAdd(e.nat, o.nat, e.f.modulus)
	return &primeElement{f: e.f, nat: n}
}

func (e *primeElement) Sub(other Element) Element {
	o := e.checkSameField(other)
	n := new(saferith.Nat).ModSub(e.nat, o.nat, e.f.modulus)
	return &primeElement{f: e.f, nat: n}
}

func (e *primeElement) Mul(other Element) Element {
	o := e.checkSameField(other)
	n := new(saferith.Nat).ModMul(e.nat, o.nat, e.f.modulus)
	return &primeElement{f: e.f, nat: n}
}

func (e *primeElement) Neg() Element {
	zero := new(saferith.Nat).SetUint64(0)
	n := new(saferith.Nat).ModSub(zero, e.nat, e.f.modulus)
	return &primeElement{f: e.f, nat: n}
}

func (e *primeElement) Inverse() Element {
	n := new(saferith.Nat).ModInverse(e.nat, e.f.modulus)
	return &primeElement{f: e.f, nat: n}
}

func (e *primeElement) IsZero() bool {
	return e.nat.Eq(new(saferith.Nat).SetUint64(0)) == 1
}

func (e *primeElement) Equal(other Element) bool {
	o := e.checkSameField(other)
	return e.nat.Eq(o.nat) == 1
}

func (e *primeElement) Size() int { return e.f.byteLen }

func (e *primeElement) MarshalBinary() ([]byte, error) {
	out := make([]byte, e.f.byteLen)
	e.nat.FillBytes(out)
	// FillBytes writes big-endian; the canonical encoding is little-endian.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (e *primeElement) UnmarshalBinary(data []byte) error {
	if len(data) != e.f.byteLen {
		return fmt.Errorf("field %s: expected %d bytes, got %d", e.f.name, e.f.byteLen, len(data))
	}
	be := make([]byte, len(data))
	for i, b := range data {
		be[len(data)-1-i] = b
	}
	e.nat = new(saferith.Nat).SetBytes(be)
	e.nat.Mod(e.nat, e.f.modulus)
	return nil
}

// Fp61 is a small field used for unit tests (prime 2^61 - 1, a Mersenne
// prime, kept deliberately small so test vectors stay human-sized).
var Fp61 Field = newPrimeField("Fp61", (1<<61)-1, 8)

// Fp32 is the 32-bit production prime field (largest prime below 2^32).
var Fp32 Field = newPrimeField("Fp32", 4294967291, 4)
