package gadgets

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// Multiply computes a replicated share of a*b in one communication
// round: each party locally computes its cross-term plus a PRSS-masked
// zero share, sends one field element to its right peer, and receives
// one from its left peer (spec.md section 4.4, "Multiplication"). In a
// malicious context, the resulting share's product with the context's
// shared r is separately multiplied (see MultiplyMalicious) and absorbed
// into the validator so later Reveal calls can be checked.
func Multiply(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, a, b share.Replicated) (share.Replicated, error) {
	f := ic.Field()
	rL, rR, err := ic.PRSS().Generate(f, ic.Path(), record)
	if err != nil {
		return share.Replicated{}, fmt.Errorf("gadgets: multiply: prss: %w", err)
	}

	d := a.Left.Mul(b.Left).
		Add(a.Left.Mul(b.Right)).
		Add(a.Right.Mul(b.Left)).
		Add(rL.Sub(rR))

	if err := sendElement(ctx, ic, ic.Right(), record, d); err != nil {
		return share.Replicated{}, fmt.Errorf("gadgets: multiply: send: %w", err)
	}
	prev, err := recvElement(ctx, ic, ic.Left(), record)
	if err != nil {
		return share.Replicated{}, fmt.Errorf("gadgets: multiply: recv: %w", err)
	}

	return share.New(prev, d), nil
}

// MultiplyMalicious runs Multiply on both the x-shares and the r*x
// shares of two malicious operands, then absorbs the resulting (z, r*z)
// pair into the context's validator, per spec.md section 4.10.
func MultiplyMalicious(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, a, b share.Malicious) (share.Malicious, error) {
	v := ic.Validator()
	if v == nil {
		return share.Malicious{}, fmt.Errorf("gadgets: multiply malicious: context has no validator")
	}

	x, err := Multiply(ctx, ic, record, a.X, b.X)
	if err != nil {
		return share.Malicious{}, err
	}
	// r*(a*b) is computed as (r*a)*b, one extra multiplication, which is
	// the standard SPDZ-style malicious multiplication trick: the MAC on
	// the product is obtained by multiplying one operand's MAC share by
	// the other operand's plain share.
	rx, err := Multiply(ctx, ic.Narrow("mac"), record, a.RX, b.X)
	if err != nil {
		return share.Malicious{}, err
	}
	if err := v.Absorb(x, rx); err != nil {
		return share.Malicious{}, fmt.Errorf("gadgets: multiply malicious: absorb: %w", err)
	}
	return share.NewMalicious(x, rx), nil
}
