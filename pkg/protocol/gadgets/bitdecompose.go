package gadgets

import (
	gocontext "context"
	"encoding/binary"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// BitDecompose converts a bounded arithmetic share x (known to fit in
// `width` bits) into its little-endian bit shares, the reverse direction
// of ConvertBit. It is not named in spec.md directly, but is required to
// implement section 4.8's "comparing the running sum against the cap bit
// by bit": capping needs the arithmetic credit total's bits, and the
// spec only describes the forward (bit-to-arithmetic) conversion.
//
// This follows the standard masked-reveal technique (Damgard et al.,
// "Unconditionally Secure Constant-Rounds MPC for Equality, Comparison,
// Bits and Exponentiation"): parties jointly hold a uniformly random
// width-bit mask already available in both bit-share and arithmetic-share
// form (built here from fresh PRSS-derived bits via ConvertBit), add it
// to x and reveal the sum, then locally subtract the mask's bit shares
// from the revealed sum's now-public bits with a ripple-borrow
// subtractor. Since the revealed sum is a public constant, one operand of
// every bit subtraction is public, so each borrow step costs only two
// multiplications instead of the usual three for a full binary
// subtractor circuit.
func BitDecompose(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, x share.Replicated, width int) ([]share.Replicated, error) {
	f := ic.Field()
	two := f.FromUint64(2)

	maskBits := make([]share.Replicated, width)
	for j := 0; j < width; j++ {
		bc := ic.Narrow(fmt.Sprintf("mask-%d", j))
		l, r, err := bc.PRSS().Generate(f, bc.Path(), record)
		if err != nil {
			return nil, fmt.Errorf("gadgets: bit decompose: mask prss: %w", err)
		}
		xorShare := share.New(f.FromUint64(parityBit(l)), f.FromUint64(parityBit(r)))
		bit, err := ConvertBit(ctx, bc.Narrow("convert"), record, xorShare)
		if err != nil {
			return nil, fmt.Errorf("gadgets: bit decompose: mask bit %d: %w", j, err)
		}
		maskBits[j] = bit
	}
	maskValue := CombineToValue(f, maskBits)
	masked := x.Add(maskValue)

	revealed, err := Reveal(ctx, ic.Narrow("reveal-masked"), record, masked)
	if err != nil {
		return nil, fmt.Errorf("gadgets: bit decompose: reveal: %w", err)
	}
	revealedBits := fieldBits(revealed, width+1)

	borrow := share.New(f.Zero(), f.Zero())
	out := make([]share.Replicated, width)
	for j := 0; j < width; j++ {
		a := revealedBits[j] // public 0/1
		b := maskBits[j]
		notA := uint64(1) - a

		// e = a xor b, public-affine in b since a is public: a + (1-2a)*b.
		coeff := f.FromUint64(1)
		if a == 1 {
			coeff = coeff.Sub(two)
		}
		e := b.ScalarMul(coeff).AddConstant(ic.Role(), f.FromUint64(a))

		bc := ic.Narrow(fmt.Sprintf("borrow-%d", j))
		eBorrow, err := Multiply(ctx, bc.Narrow("e-borrow"), record, e, borrow)
		if err != nil {
			return nil, fmt.Errorf("gadgets: bit decompose: bit %d: e*borrow: %w", j, err)
		}
		diff := e.Add(borrow).Sub(eBorrow.ScalarMul(two))
		out[j] = diff

		notABit := b.ScalarMul(f.FromUint64(notA)) // (1-a)*b, local since a is public
		notEBorrow := borrow.Sub(eBorrow)           // (1-e)*borrow = borrow - e*borrow
		crossTerm, err := Multiply(ctx, bc.Narrow("cross"), record, notABit, notEBorrow)
		if err != nil {
			return nil, fmt.Errorf("gadgets: bit decompose: bit %d: borrow cross term: %w", j, err)
		}
		borrow = notABit.Add(notEBorrow).Sub(crossTerm)
	}
	return out, nil
}

// parityBit reduces a field element to a single 0/1 value by taking the
// low bit of its canonical encoding, used only to turn a fresh PRSS
// field element into a usable XOR-share bit component for BitDecompose's
// mask.
func parityBit(e field.Element) uint64 {
	data, _ := e.MarshalBinary()
	if len(data) == 0 {
		return 0
	}
	return uint64(data[0] & 1)
}

// fieldBits reads a (now public) field element's canonical little-endian
// encoding as `width` bits.
func fieldBits(e field.Element, width int) []uint64 {
	data, _ := e.MarshalBinary()
	var v uint64
	for i := 0; i < 8 && i < len(data); i++ {
		v |= uint64(data[i]) << uint(8*i)
	}
	_ = binary.LittleEndian
	bits := make([]uint64, width)
	for i := 0; i < width; i++ {
		bits[i] = (v >> uint(i)) & 1
	}
	return bits
}
