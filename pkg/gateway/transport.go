package gateway

import (
	"context"

	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/step"
)

// Transport is the reliable, ordered, bidirectional byte channel to one
// peer that the MPC core treats as an external collaborator (spec.md
// section 1: "provide a bidirectional, reliable, ordered byte channel to
// each of the other two helpers, keyed by a hierarchical step name").
// Production transports implement this over HTTPS per spec.md section 6;
// that wire format is out of scope here.
type Transport interface {
	// SendBlock delivers a fixed-size-element block to peer, on the
	// channel identified by step, starting at the given record offset.
	SendBlock(ctx context.Context, peer party.Role, stepPath step.Path, offset recordid.ID, data []byte) error
}

// InMemoryTransport wires a Gateway's outgoing blocks directly into a
// peer Gateway's Deliver method, used by the in-memory test fixture
// (internal/test.World) and by the simulate CLI command. It never
// leaves process memory, matching the original's TestWorld network
// (_examples/original_source/src/test_fixture/world.rs).
type InMemoryTransport struct {
	self party.Role
	// peers maps a role to the Gateway that will receive blocks sent to
	// it.
	peers map[party.Role]*Gateway
}

// NewInMemoryTransport builds a transport for self that delivers
// directly into the given peer gateways.
func NewInMemoryTransport(self party.Role, peers map[party.Role]*Gateway) *InMemoryTransport {
	return &InMemoryTransport{self: self, peers: peers}
}

func (t *InMemoryTransport) SendBlock(ctx context.Context, peer party.Role, stepPath step.Path, offset recordid.ID, data []byte) error {
	gw, ok := t.peers[peer]
	if !ok {
		panic("gateway: in-memory transport has no route to peer " + peer.String())
	}
	return gw.Deliver(t.self, stepPath, offset, data)
}
