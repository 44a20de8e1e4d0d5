package gadgets

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// Reshare re-randomizes s toward party `to` so that, afterwards, all
// three parties hold a fresh random replicated sharing of the same
// secret and `to` itself learns nothing new about it. Ported from the
// original's exact case split (_examples/original_source/src/protocol/
// basics/reshare.rs) rather than a single generic formula, since that is
// how the teacher's own blinded-share exchange code is structured:
//
//  1. PRSS yields (r0, r1) at this record index.
//  2. to.Left computes part1 = (aL + aR) - r1 and sends it to to.Right.
//  3. to.Right computes part2 = aL - r0 and sends it to to.Left.
//  4. Final shares: to holds (r0, r1); to.Left holds (part1+part2, r1);
//     to.Right holds (r0, part1+part2).
func Reshare(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, s share.Replicated, to party.Role) (share.Replicated, error) {
	f := ic.Field()
	r0, r1, err := ic.PRSS().Generate(f, ic.Path(), record)
	if err != nil {
		return share.Replicated{}, fmt.Errorf("gadgets: reshare: prss: %w", err)
	}

	toLeft := to.Peer(party.Left)
	toRight := to.Peer(party.Right)

	switch ic.Role() {
	case toLeft:
		part1 := s.Left.Add(s.Right).Sub(r1)
		if err := sendElement(ctx, ic, toRight, record, part1); err != nil {
			return share.Replicated{}, fmt.Errorf("gadgets: reshare: send part1: %w", err)
		}
		part2, err := recvElement(ctx, ic, toRight, record)
		if err != nil {
			return share.Replicated{}, fmt.Errorf("gadgets: reshare: recv part2: %w", err)
		}
		return share.New(part1.Add(part2), r1), nil

	case toRight:
		part2 := s.Left.Sub(r0)
		if err := sendElement(ctx, ic, toLeft, record, part2); err != nil {
			return share.Replicated{}, fmt.Errorf("gadgets: reshare: send part2: %w", err)
		}
		part1, err := recvElement(ctx, ic, toLeft, record)
		if err != nil {
			return share.Replicated{}, fmt.Errorf("gadgets: reshare: recv part1: %w", err)
		}
		return share.New(r0, part1.Add(part2)), nil

	default: // ic.Role() == to
		return share.New(r0, r1), nil
	}
}

// ReshareMalicious runs Reshare on both components of a malicious share
// and absorbs the result into the validator, exactly as
// MultiplyMalicious does for multiplication (spec.md section 4.4,
// "Malicious reshare runs the same algorithm on <x> and <r.x> and then
// accumulates a MAC on the combined pair").
func ReshareMalicious(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, m share.Malicious, to party.Role) (share.Malicious, error) {
	v := ic.Validator()
	if v == nil {
		return share.Malicious{}, fmt.Errorf("gadgets: reshare malicious: context has no validator")
	}
	x, err := Reshare(ctx, ic, record, m.X, to)
	if err != nil {
		return share.Malicious{}, err
	}
	rx, err := Reshare(ctx, ic.Narrow("mac"), record, m.RX, to)
	if err != nil {
		return share.Malicious{}, err
	}
	if err := v.Absorb(x, rx); err != nil {
		return share.Malicious{}, fmt.Errorf("gadgets: reshare malicious: absorb: %w", err)
	}
	return share.NewMalicious(x, rx), nil
}
