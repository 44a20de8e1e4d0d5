package gadgets

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// Reveal opens a semi-honest replicated share to all three parties in
// one round: each party sends its Right component to its left peer; the
// opened value is Left + Right + the value received from the right peer
// (spec.md section 4.4, "Reveal"). Malicious contexts must run
// validator.Validate successfully before calling this on any
// MAC-protected value (spec.md section 4.3).
func Reveal(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, s share.Replicated) (field.Element, error) {
	if err := sendElement(ctx, ic, ic.Left(), record, s.Right); err != nil {
		return nil, fmt.Errorf("gadgets: reveal: send: %w", err)
	}
	fromRight, err := recvElement(ctx, ic, ic.Right(), record)
	if err != nil {
		return nil, fmt.Errorf("gadgets: reveal: recv: %w", err)
	}
	return s.Left.Add(s.Right).Add(fromRight), nil
}

// RevealMalicious validates the context's accumulated MACs and then
// reveals the x-component of a malicious share. It is the only path by
// which a malicious sub-protocol's result may be exposed (spec.md
// section 4.3, section 4.10).
func RevealMalicious(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, m share.Malicious) (field.Element, error) {
	v := ic.Validator()
	if v == nil {
		return nil, fmt.Errorf("gadgets: reveal malicious: context has no validator")
	}
	// Each of u, w, r gets its own narrowed step so their reveals occupy
	// distinct channels instead of colliding on one record id.
	label := 0
	reveal := func(c gocontext.Context, s share.Replicated) (field.Element, error) {
		label++
		return Reveal(c, ic.Narrow(fmt.Sprintf("validate-%d", label)), record, s)
	}
	if err := v.Validate(ctx, reveal); err != nil {
		return nil, err
	}
	return Reveal(ctx, ic.Narrow("validate-output"), record, m.X)
}
