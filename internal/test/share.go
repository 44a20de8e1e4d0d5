package test

import (
	"crypto/rand"
	"fmt"

	"github.com/luxfi/ipa-mpc/pkg/ba"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// ShareValue builds an arithmetic replicated sharing of value: random
// x1, x2 and x3 = value - x1 - x2, laid out (x1,x2),(x2,x3),(x3,x1) across
// H1,H2,H3 per the field-local PRSS/Reshare generation pattern, indexed
// by party.AllRoles() order.
func ShareValue(f field.Field, value field.Element) ([3]share.Replicated, error) {
	x1, err := f.Random(rand.Reader)
	if err != nil {
		return [3]share.Replicated{}, fmt.Errorf("test: share value: %w", err)
	}
	x2, err := f.Random(rand.Reader)
	if err != nil {
		return [3]share.Replicated{}, fmt.Errorf("test: share value: %w", err)
	}
	x3 := value.Sub(x1).Sub(x2)
	return [3]share.Replicated{
		share.New(x1, x2), // H1
		share.New(x2, x3), // H2
		share.New(x3, x1), // H3
	}, nil
}

// ShareUint64 is ShareValue for a plaintext uint64, the common case for
// breakdown keys and trigger values in synthetic input rows.
func ShareUint64(f field.Field, value uint64) ([3]share.Replicated, error) {
	return ShareValue(f, f.FromUint64(value))
}

// ShareBits builds a per-bit XOR replicated sharing of arr's bits,
// little-endian, in the representation gadgets.ConvertBit expects: per
// bit, random b1, b2 in {0,1} and b3 = bit xor b1 xor b2, laid out as
// plain arithmetic replicated shares of (b1,b2,b3) -- the inclusion-
// exclusion identity in ConvertBit recovers the XOR, not the sum.
func ShareBits(f field.Field, arr *ba.Array) ([3][]share.Replicated, error) {
	n := arr.Bits()
	var out [3][]share.Replicated
	for p := range out {
		out[p] = make([]share.Replicated, n)
	}
	one := f.FromUint64(1)
	zero := f.Zero()
	for i := 0; i < n; i++ {
		var rb [1]byte
		if _, err := rand.Read(rb[:]); err != nil {
			return out, fmt.Errorf("test: share bits: %w", err)
		}
		b1u := rb[0] & 1
		b2u := (rb[0] >> 1) & 1
		bit := arr.Bit(i)
		b3u := bit ^ b1u ^ b2u

		bitElem := func(v uint8) field.Element {
			if v == 1 {
				return one
			}
			return zero
		}
		b1, b2, b3 := bitElem(b1u), bitElem(b2u), bitElem(b3u)
		out[0][i] = share.New(b1, b2) // H1
		out[1][i] = share.New(b2, b3) // H2
		out[2][i] = share.New(b3, b1) // H3
	}
	return out, nil
}

// RoleIndex returns r's position in party.AllRoles() order (0,1,2),
// matching the index convention ShareValue/ShareBits/World.Run all use.
func RoleIndex(r party.Role) int {
	for i, role := range party.AllRoles() {
		if role == r {
			return i
		}
	}
	panic("test: unknown role")
}
