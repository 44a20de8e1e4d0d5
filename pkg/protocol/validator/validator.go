// Package validator implements the malicious-security MAC validator from
// spec.md section 4.10: a running accumulator over every malicious share
// produced in a sub-protocol, checked once at the end before any reveal.
package validator

import (
	"context"
	"fmt"

	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/ipaerr"
	"github.com/luxfi/ipa-mpc/pkg/prss"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
	"github.com/luxfi/ipa-mpc/pkg/step"
)

// RevealFunc reveals a semi-honest replicated share to all three
// parties. It is injected rather than imported directly so this package
// never depends on the gadget/context layer that in turn depends on
// validators -- see DESIGN.md for why the dependency runs this way.
type RevealFunc func(ctx context.Context, s share.Replicated) (field.Element, error)

// Validator owns the MAC accumulator for the lifetime of one malicious
// sub-protocol (spec.md: "owned by a single task and not shared").
// Narrowing a context does NOT change r (spec.md section 9): all
// MAC-accumulating operations within one sub-protocol share the same
// Validator instance and therefore the same r.
type Validator struct {
	r     share.Replicated
	u, w  share.Replicated
	f     field.Field
	prss  *prss.Endpoint
	path  step.Path
	count recordid.ID
}

// New creates a validator bound to r (the shared MAC key, itself a
// replicated share) for sub-protocols running PRSS draws under path.
func New(f field.Field, r share.Replicated, prssEndpoint *prss.Endpoint, path step.Path) *Validator {
	zero := f.Zero()
	return &Validator{
		r:    r,
		u:    share.New(zero, zero),
		w:    share.New(zero, zero),
		f:    f,
		prss: prssEndpoint,
		path: path,
	}
}

// Absorb folds one malicious-share's components (z, r*z) into the
// running accumulators u and w with a fresh PRSS-generated random
// coefficient, so that a single bit flip in any absorbed share causes
// validation to fail with overwhelming probability (spec.md testable
// property 6) while still allowing many absorptions to be checked in one
// batched reveal at the end.
func (v *Validator) Absorb(z, rz share.Replicated) error {
	coeffL, coeffR, err := v.prss.Generate(v.f, v.path, v.count)
	if err != nil {
		return fmt.Errorf("validator: absorb: %w", err)
	}
	v.count++
	coeff := share.New(coeffL, coeffR)
	v.u = v.u.Add(maskedScale(coeff, z))
	v.w = v.w.Add(maskedScale(coeff, rz))
	return nil
}

// maskedScale scales each local component of s by the matching local
// component of coeff; since both are additive replicated shares this
// stays a valid linear share combination without any communication.
func maskedScale(coeff, s share.Replicated) share.Replicated {
	return share.New(coeff.Left.Mul(s.Left), coeff.Right.Mul(s.Right))
}

// Validate reveals u, w, and r via the supplied RevealFunc and checks
// r*u == w, aborting the query with MaliciousSecurityCheckFailed on
// disagreement (spec.md section 4.10). Reveal must be preceded by this
// check succeeding before any protocol output is revealed (spec.md
// section 4.3).
func (v *Validator) Validate(ctx context.Context, reveal RevealFunc) error {
	uVal, err := reveal(ctx, v.u)
	if err != nil {
		return fmt.Errorf("validator: reveal u: %w", err)
	}
	wVal, err := reveal(ctx, v.w)
	if err != nil {
		return fmt.Errorf("validator: reveal w: %w", err)
	}
	rVal, err := reveal(ctx, v.r)
	if err != nil {
		return fmt.Errorf("validator: reveal r: %w", err)
	}
	if !rVal.Mul(uVal).Equal(wVal) {
		return ipaerr.New(ipaerr.MaliciousSecurityCheckFailed, fmt.Errorf("MAC check failed: r*u != w"))
	}
	return nil
}
