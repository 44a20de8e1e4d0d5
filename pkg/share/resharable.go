package share

import (
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
)

// Reshareable is implemented by any row type whose component shares can
// each be re-randomized toward a target party, following the Rust
// original's generic `Resharable` trait (apply_sort::shuffle::Resharable
// in _examples/original_source/src/protocol/sort/apply_sort/mod.rs):
// rows made of several replicated-share fields reshare by forwarding the
// call to each field in turn. Reshare itself (the network protocol) is
// implemented once in pkg/protocol/gadgets and driven generically over
// any Reshareable via this interface.
type Reshareable[T any] interface {
	// Fields returns the row's component shares in a stable order.
	Fields() []Replicated
	// WithFields rebuilds a row of the same shape from re-shared
	// components, in the same order Fields() produced them.
	WithFields([]Replicated) T
}

// Resharer describes a share type that can re-randomize itself toward a
// party, per spec.md section 9's "capability interface" design note. No
// type in this module implements it; shuffle and sort reshare rows through
// Reshareable and the gadgets package's Reshare instead.
type Resharer interface {
	// ReshareTo re-randomizes the share toward the given party at the
	// given record, returning the party's own fresh replicated pair.
	ReshareTo(to party.Role, record recordid.ID) (Replicated, error)
}
