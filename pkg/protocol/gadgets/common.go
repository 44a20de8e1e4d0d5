// Package gadgets implements the core one-round MPC building blocks from
// spec.md section 4.4: multiplication, reveal, reshare, modulus
// conversion, multi-bit bit-permutation generation, and bitwise
// equality. Every gadget is written once against the context.Context /
// share.Replicated capability pair so it works unmodified in both
// semi-honest and malicious sub-protocols (spec.md section 9).
package gadgets

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
)

// sendElement marshals a field element to its canonical fixed-width
// encoding and pushes it on the channel to peer.
func sendElement(ctx gocontext.Context, ic ipacontext.Context, peer party.Role, record recordid.ID, e field.Element) error {
	data, err := e.MarshalBinary()
	if err != nil {
		return fmt.Errorf("gadgets: marshal element: %w", err)
	}
	return ic.Gateway().Send(ctx, peer, ic.Path(), record, data)
}

// recvElement negotiates the channel's element size (if not already
// known) and blocks for the field element peer sent at record.
func recvElement(ctx gocontext.Context, ic ipacontext.Context, peer party.Role, record recordid.ID) (field.Element, error) {
	f := ic.Field()
	ic.Gateway().NegotiateElementSize(peer, ic.Path(), f.ElementSize())
	data, err := ic.Gateway().Receive(ctx, peer, ic.Path(), record)
	if err != nil {
		return nil, fmt.Errorf("gadgets: receive element: %w", err)
	}
	e := f.Zero()
	if err := e.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("gadgets: unmarshal element: %w", err)
	}
	return e, nil
}
