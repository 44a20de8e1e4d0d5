// Package share implements the two replicated secret-sharing
// representations from spec.md section 3: semi-honest (xL, xR) shares
// and malicious (x, r*x) shares built on top of them.
package share

import (
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/party"
)

// Replicated is a semi-honest replicated share of a field element: a
// party holds (Left, Right) such that, ring-consistently across the
// three parties, Left_i + Right_i forms the usual (x1,x2),(x2,x3),(x3,x1)
// layout and any two parties can reconstruct the secret.
type Replicated struct {
	Left, Right field.Element
}

// New builds a Replicated share from its two local components.
func New(left, right field.Element) Replicated {
	return Replicated{Left: left, Right: right}
}

// Add returns the share of a+b (local, no communication).
func (s Replicated) Add(o Replicated) Replicated {
	return Replicated{Left: s.Left.Add(o.Left), Right: s.Right.Add(o.Right)}
}

// Sub returns the share of a-b (local, no communication).
func (s Replicated) Sub(o Replicated) Replicated {
	return Replicated{Left: s.Left.Sub(o.Left), Right: s.Right.Sub(o.Right)}
}

// Neg returns the share of -a.
func (s Replicated) Neg() Replicated {
	return Replicated{Left: s.Left.Neg(), Right: s.Right.Neg()}
}

// ScalarMul multiplies both local components by a publicly-known scalar
// (local, no communication) -- used e.g. by attribution to reset a running
// total at a public run boundary.
func (s Replicated) ScalarMul(c field.Element) Replicated {
	return Replicated{Left: s.Left.Mul(c), Right: s.Right.Mul(c)}
}

// AddConstant adds a publicly-known constant c to the secret. The
// three-party layout holds one logical component (x1) at H1.Left and
// H3.Right, so only those two roles fold c into their local state; H2
// holds neither half of x1 and is left unchanged. Every party must be
// told its own role to apply this consistently -- unlike Add/Sub/Neg/
// ScalarMul, this is not role-agnostic.
func (s Replicated) AddConstant(role party.Role, c field.Element) Replicated {
	switch role {
	case party.H1:
		return Replicated{Left: s.Left.Add(c), Right: s.Right}
	case party.H3:
		return Replicated{Left: s.Left, Right: s.Right.Add(c)}
	default:
		return s
	}
}
