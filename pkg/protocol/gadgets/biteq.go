package gadgets

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// BitwiseEqual tests whether two equal-length vectors of arithmetic
// 0/1-valued shares (as produced by ConvertBits) represent the same
// value, returning a share of 1 if they match and 0 otherwise (spec.md
// section 4.4, "Bitwise equality"). The attribution pipeline does not call
// it: it compares the public OPRF tags of adjacent sorted rows locally.
//
// Per-bit XOR costs one multiplication each (xor = a+b-2ab for 0/1
// values); ANDing the per-bit "equal" indicators together is done with a
// balanced multiplication tree rather than a linear chain, so the round
// count is O(log k) instead of O(k) for a k-bit key.
func BitwiseEqual(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, a, b []share.Replicated) (share.Replicated, error) {
	if len(a) != len(b) {
		return share.Replicated{}, fmt.Errorf("gadgets: bitwise equal: length mismatch %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return share.Replicated{}, fmt.Errorf("gadgets: bitwise equal: empty input")
	}
	f := ic.Field()
	two := f.FromUint64(2)
	one := PublicConstant(f, ic.Role(), f.FromUint64(1))

	terms := make([]share.Replicated, len(a))
	for i := range a {
		xorProduct, err := Multiply(ctx, ic.Narrow(fmt.Sprintf("xor-%d", i)), record, a[i], b[i])
		if err != nil {
			return share.Replicated{}, fmt.Errorf("gadgets: bitwise equal: bit %d: %w", i, err)
		}
		xor := a[i].Add(b[i]).Sub(xorProduct.ScalarMul(two))
		terms[i] = one.Sub(xor)
	}

	round := 0
	for len(terms) > 1 {
		next := make([]share.Replicated, 0, (len(terms)+1)/2)
		for i := 0; i+1 < len(terms); i += 2 {
			prod, err := Multiply(ctx, ic.Narrow(fmt.Sprintf("tree-%d-%d", round, i/2)), record, terms[i], terms[i+1])
			if err != nil {
				return share.Replicated{}, fmt.Errorf("gadgets: bitwise equal: tree round %d: %w", round, err)
			}
			next = append(next, prod)
		}
		if len(terms)%2 == 1 {
			next = append(next, terms[len(terms)-1])
		}
		terms = next
		round++
	}
	return terms[0], nil
}
