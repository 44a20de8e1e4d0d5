// Package context implements the hierarchical Context tree from spec.md
// section 4.3: each narrowing produces an independent channel namespace
// and an independent PRSS stream, which is the sole mechanism for safe
// concurrent composition of sub-protocols sharing one gateway.
package context

import (
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/gateway"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/protocol/validator"
	"github.com/luxfi/ipa-mpc/pkg/prss"
	"github.com/luxfi/ipa-mpc/pkg/step"
)

// Context carries everything a gadget needs to run one sub-protocol step:
// a role, a gateway, a PRSS endpoint, the current step path, and a
// total-records hint used for backpressure and last-batch sizing.
type Context struct {
	role         party.Role
	gw           *gateway.Gateway
	prssEndpoint *prss.Endpoint
	path         step.Path
	totalRecords int
	f            field.Field

	// validator is non-nil only for malicious contexts; it is shared by
	// every narrowing of the sub-protocol that created it (spec.md
	// section 9: "narrowing contexts do NOT change r").
	validator *validator.Validator
}

// New creates a root, semi-honest context for one query.
func New(role party.Role, gw *gateway.Gateway, prssEndpoint *prss.Endpoint, f field.Field) Context {
	return Context{role: role, gw: gw, prssEndpoint: prssEndpoint, path: step.Root, f: f}
}

// Narrow returns a child context whose step path is self.path + label.
// Two contexts with disjoint step paths share no channels and no
// randomness.
func (c Context) Narrow(label string) Context {
	c.path = c.path.Narrow(label)
	return c
}

// SetTotalRecords fixes the expected record count for channels derived
// from this context.
func (c Context) SetTotalRecords(n int) Context {
	c.totalRecords = n
	return c
}

// WithValidator returns a malicious variant of c bound to v. All further
// narrowings of the returned context share v, so every MAC-accumulating
// operation in the sub-protocol uses the same validator (and therefore
// the same r), as required by spec.md section 9.
func (c Context) WithValidator(v *validator.Validator) Context {
	c.validator = v
	return c
}

// Downgrade produces a semi-honest context sharing this context's
// gateway, PRSS, and step path but dropping the validator. Per spec.md
// section 4.3, this is only legitimate before any reveal in the
// sub-protocol, and call sites that use it must be explicit about doing
// so (the method name itself is the required tag).
func (c Context) Downgrade() Context {
	c.validator = nil
	return c
}

func (c Context) Role() party.Role                  { return c.role }
func (c Context) Gateway() *gateway.Gateway          { return c.gw }
func (c Context) PRSS() *prss.Endpoint               { return c.prssEndpoint }
func (c Context) Path() step.Path                    { return c.path }
func (c Context) Field() field.Field                 { return c.f }
func (c Context) TotalRecords() int                  { return c.totalRecords }
func (c Context) IsMalicious() bool                  { return c.validator != nil }
func (c Context) Validator() *validator.Validator    { return c.validator }

// Left returns the peer role to this context's left in the ring.
func (c Context) Left() party.Role { return c.role.Peer(party.Left) }

// Right returns the peer role to this context's right in the ring.
func (c Context) Right() party.Role { return c.role.Peer(party.Right) }

// OtherParties returns the two peer roles other than this one, in
// (left, right) order.
func (c Context) OtherParties() []party.Role {
	return []party.Role{c.Left(), c.Right()}
}
