package gadgets

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// PublicConstant builds a replicated share whose secret is the public
// value c, following the AddConstant convention (spec.md section 3):
// x1 lives at H1.Left and H3.Right, so a bare public value packed that
// way reconstructs to c regardless of which role computes it.
func PublicConstant(f field.Field, role party.Role, c field.Element) share.Replicated {
	zero := f.Zero()
	return share.New(zero, zero).AddConstant(role, c)
}

// GenerateBitPermutation implements the single-bit permutation generator
// from spec.md section 4.4 ("Multi-bit bit-permutation generation"),
// following the Chida/Hamada/Ikarashi/Kikuchi/Kiribuchi/Pinkas prefix-sum
// construction: given one arithmetic-shared sort bit per record (as
// produced by ConvertBit), it returns a share of each record's rank under
// a stable sort by that bit.
//
// A record with bit 0 ranks among the zeros seen so far; a record with
// bit 1 ranks after every zero, among the ones seen so far. Both prefix
// counts are running sums of shares and are entirely local (no
// communication); only the final selection between the two branches,
// which depends on the secret bit, costs one multiplication per record.
func GenerateBitPermutation(ctx gocontext.Context, ic ipacontext.Context, bits []share.Replicated) ([]share.Replicated, error) {
	n := len(bits)
	if n == 0 {
		return nil, nil
	}
	f := ic.Field()
	zero := f.Zero()
	one := f.FromUint64(1)
	oneShare := PublicConstant(f, ic.Role(), one)

	onesPrefix := make([]share.Replicated, n)
	running := share.New(zero, zero)
	for i, b := range bits {
		running = running.Add(b)
		onesPrefix[i] = running
	}
	totalOnes := onesPrefix[n-1]
	nConst := PublicConstant(f, ic.Role(), f.FromUint64(uint64(n)))
	totalZeros := nConst.Sub(totalOnes)

	ranks := make([]share.Replicated, n)
	for i, b := range bits {
		idxConst := PublicConstant(f, ic.Role(), f.FromUint64(uint64(i+1)))
		zerosSoFar := idxConst.Sub(onesPrefix[i]).Sub(oneShare)
		onesSoFar := onesPrefix[i].Sub(oneShare)
		oneBranch := totalZeros.Add(onesSoFar)
		delta := oneBranch.Sub(zerosSoFar)

		selected, err := Multiply(ctx, ic.Narrow(fmt.Sprintf("rank-%d", i)), recordid.ID(i), b, delta)
		if err != nil {
			return nil, fmt.Errorf("gadgets: generate bit permutation: record %d: %w", i, err)
		}
		ranks[i] = zerosSoFar.Add(selected)
	}
	return ranks, nil
}

// GenerateMultiBitPermutation runs GenerateBitPermutation once per bit
// column, in the order the columns are given, each under its own
// "digit-%d" narrowed step, and returns the per-column rank shares
// (spec.md section 4.4, "multi-bit bit-permutation generation"). It does
// not compose them into one permutation over the whole digit; nothing in
// this function orders the columns by bit significance.
func GenerateMultiBitPermutation(ctx gocontext.Context, ic ipacontext.Context, bitColumns [][]share.Replicated) ([][]share.Replicated, error) {
	perms := make([][]share.Replicated, len(bitColumns))
	for i, col := range bitColumns {
		p, err := GenerateBitPermutation(ctx, ic.Narrow(fmt.Sprintf("digit-%d", i)), col)
		if err != nil {
			return nil, fmt.Errorf("gadgets: generate multi-bit permutation: digit %d: %w", i, err)
		}
		perms[i] = p
	}
	return perms, nil
}
