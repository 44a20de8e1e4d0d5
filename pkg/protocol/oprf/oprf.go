// Package oprf implements the OPRF evaluation protocol from spec.md
// section 4.7: the parties multiply their shares of the match key and of
// a per-query secret scalar k with one Multiply round, the product is
// revealed in one round, and the revealed scalar is lifted onto the curve's base
// point to produce an opaque, per-user, query-unlinkable tag.
//
// The original's OPRF evaluation (protocol/ipa's oprf_ipa pipeline) was
// not included in this pack's retrieval, so this is grounded directly on
// spec.md section 4.7's description plus the Multiply/Reveal gadgets
// already built for the field case, reused here over pkg/curve's scalar
// field via curve.ScalarField (see pkg/curve/field.go).
package oprf

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/curve"
	"github.com/luxfi/ipa-mpc/pkg/protocol/gadgets"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// GenerateKey draws the query's single shared secret scalar k from PRSS.
// It must be called once per query, under a context narrowed to a step
// distinct from every per-record evaluation, since every record's
// evaluation reuses this same k (spec.md section 4.7: "a shared secret
// scalar generated once per query via PRSS").
func GenerateKey(ic ipacontext.Context) (share.Replicated, error) {
	left, right, err := ic.PRSS().Generate(curve.ScalarField, ic.Path(), recordid.ID(0))
	if err != nil {
		return share.Replicated{}, fmt.Errorf("oprf: generate key: %w", err)
	}
	return share.New(left, right), nil
}

// Evaluate computes the OPRF tag for a single record's match-key share:
// one multiplication round to get a share of match_key*k, one reveal
// round to open it, then a local scalar-times-base-point multiplication
// to lift the revealed scalar into an opaque curve point.
func Evaluate(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, matchKeyShare, keyShare share.Replicated) (*curve.Point, error) {
	product, err := gadgets.Multiply(ctx, ic.Narrow("multiply"), record, matchKeyShare, keyShare)
	if err != nil {
		return nil, fmt.Errorf("oprf: multiply: %w", err)
	}
	revealed, err := gadgets.Reveal(ctx, ic.Narrow("reveal"), record, product)
	if err != nil {
		return nil, fmt.Errorf("oprf: reveal: %w", err)
	}
	scalarElement, ok := revealed.(curve.ScalarElement)
	if !ok {
		return nil, fmt.Errorf("oprf: evaluate: context field is not the curve scalar field")
	}
	return scalarElement.Unwrap().ActOnBase(), nil
}

// EvaluateBatch runs Evaluate once per record, each under its own
// per-record narrowed step so the fixed k-share can be reused across
// every record's channel without colliding.
func EvaluateBatch(ctx gocontext.Context, ic ipacontext.Context, matchKeyShares []share.Replicated, keyShare share.Replicated) ([]*curve.Point, error) {
	out := make([]*curve.Point, len(matchKeyShares))
	for i, mk := range matchKeyShares {
		p, err := Evaluate(ctx, ic.Narrow(fmt.Sprintf("record-%d", i)), recordid.ID(i), mk, keyShare)
		if err != nil {
			return nil, fmt.Errorf("oprf: evaluate batch: record %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}
