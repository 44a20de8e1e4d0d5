package share

import "github.com/luxfi/ipa-mpc/pkg/field"

// Malicious is a malicious replicated share of x: a pair of semi-honest
// shares, one of x itself and one of r*x, where r is the validator's
// globally-secret MAC key (itself replicated-shared). Invariant: at
// validation time the revealed r*x must equal r times the revealed x
// (spec.md section 3, "Malicious replicated share").
type Malicious struct {
	X  Replicated
	RX Replicated
}

// NewMalicious pairs a share of x with a share of r*x.
func NewMalicious(x, rx Replicated) Malicious {
	return Malicious{X: x, RX: rx}
}

// Add returns the share of a+b along with its MAC.
func (m Malicious) Add(o Malicious) Malicious {
	return Malicious{X: m.X.Add(o.X), RX: m.RX.Add(o.RX)}
}

// Sub returns the share of a-b along with its MAC.
func (m Malicious) Sub(o Malicious) Malicious {
	return Malicious{X: m.X.Sub(o.X), RX: m.RX.Sub(o.RX)}
}

// ScalarMul multiplies both x and r*x by a public scalar.
func (m Malicious) ScalarMul(c field.Element) Malicious {
	return Malicious{X: m.X.ScalarMul(c), RX: m.RX.ScalarMul(c)}
}
