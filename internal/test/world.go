// Package test provides the in-memory 3-party fixture used by every
// protocol-level test in this module, porting the original Rust
// TestWorld/Runner idea (_examples/original_source/src/test_fixture/
// world.rs) into Go: build three Contexts wired to one in-memory network,
// run a closure per helper concurrently, and collect their results.
package test

import (
	gocontext "context"
	"crypto/rand"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/gateway"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/prss"

	"golang.org/x/sync/errgroup"
)

// PartyIDs returns n synthetic party identifiers, grounded on the
// teacher's internal/test.PartyIDs helper used across its network tests.
func PartyIDs(n int) []party.ID {
	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(fmt.Sprintf("party-%d", i))
	}
	return ids
}

// World wires three Gateways over InMemoryTransport, one PRSS Endpoint
// per role, and one default Context per role built over f. A query that
// needs a second field concurrently (the OPRF pipeline narrows into the
// curve scalar field alongside the main prime field) builds it with
// ContextFor instead of using Contexts directly, since Context fixes its
// field at construction but Gateway and Endpoint are shared across both.
type World struct {
	Contexts  map[party.Role]ipacontext.Context
	Gateways  map[party.Role]*gateway.Gateway
	Endpoints map[party.Role]*prss.Endpoint
}

// ContextFor builds a fresh root context for role r over field f, reusing
// this World's Gateway and PRSS Endpoint for r. Narrow the result (e.g.
// to "main" or "oprf") before use if it will run alongside another
// context sharing the same Gateway, so their channels never collide.
func (w *World) ContextFor(r party.Role, f field.Field) ipacontext.Context {
	return ipacontext.New(r, w.Gateways[r], w.Endpoints[r], f)
}

// PairwiseEndpoints builds one PRSS Endpoint per role with freshly
// generated random pre-shared seeds, the way a real deployment's
// out-of-band key exchange would, except performed in-process -- split
// out of NewWorld so tests that only need PRSS (no gateway, no channels)
// can build endpoints without a whole World.
func PairwiseEndpoints() (map[party.Role]*prss.Endpoint, error) {
	roles := party.AllRoles()

	// seeds[{a,b}] (a<b canonical ordering) is the pre-shared seed known
	// to both a and b, mirroring spec.md section 1's "supply a
	// shared-randomness oracle initialized from pairwise pre-shared
	// seeds" contract.
	seeds := make(map[[2]party.Role][]byte)
	for i := 0; i < len(roles); i++ {
		for j := i + 1; j < len(roles); j++ {
			seed := make([]byte, 32)
			if _, err := rand.Read(seed); err != nil {
				return nil, fmt.Errorf("test: pairwise endpoints: %w", err)
			}
			seeds[[2]party.Role{roles[i], roles[j]}] = seed
		}
	}
	seedFor := func(a, b party.Role) []byte {
		if a < b {
			return seeds[[2]party.Role{a, b}]
		}
		return seeds[[2]party.Role{b, a}]
	}

	endpoints := make(map[party.Role]*prss.Endpoint, 3)
	for _, r := range roles {
		endpoint, err := prss.NewEndpoint(seedFor(r, r.Peer(party.Left)), seedFor(r, r.Peer(party.Right)))
		if err != nil {
			return nil, fmt.Errorf("test: pairwise endpoints: prss endpoint for %s: %w", r, err)
		}
		endpoints[r] = endpoint
	}
	return endpoints, nil
}

// NewWorld builds a fresh World for f, generating random pairwise PRSS
// seeds the way a real deployment's out-of-band key exchange would,
// except performed in-process for the test.
func NewWorld(f field.Field) (*World, error) {
	roles := party.AllRoles()

	endpoints, err := PairwiseEndpoints()
	if err != nil {
		return nil, err
	}

	// Each role's transport map is created before its Gateway so that,
	// once every Gateway exists, the in-memory transports can be filled
	// in through the same map references the Gateways already hold --
	// Gateway.New stores the map itself, not a copy.
	transportMaps := make(map[party.Role]map[party.Role]gateway.Transport, 3)
	gateways := make(map[party.Role]*gateway.Gateway, 3)
	for _, r := range roles {
		transportMaps[r] = make(map[party.Role]gateway.Transport, 2)
		gateways[r] = gateway.New(r, transportMaps[r], gateway.DefaultConfig())
	}
	for _, r := range roles {
		peers := make(map[party.Role]*gateway.Gateway, 2)
		for _, other := range roles {
			if other != r {
				peers[other] = gateways[other]
			}
		}
		transport := gateway.NewInMemoryTransport(r, peers)
		for _, other := range roles {
			if other != r {
				transportMaps[r][other] = transport
			}
		}
	}

	contexts := make(map[party.Role]ipacontext.Context, 3)
	for _, r := range roles {
		contexts[r] = ipacontext.New(r, gateways[r], endpoints[r], f)
	}

	return &World{Contexts: contexts, Gateways: gateways, Endpoints: endpoints}, nil
}

// Run runs fn once per role concurrently and returns each role's
// result in role order (H1, H2, H3), following the teacher's errgroup
// concurrency style (pkg/gateway.Gateway.SendAll) generalized to
// per-party fan-out instead of per-channel fan-out.
func (w *World) Run(ctx gocontext.Context, fn func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error)) ([3]interface{}, error) {
	var out [3]interface{}
	eg, ctx := errgroup.WithContext(ctx)
	for i, r := range party.AllRoles() {
		i, r := i, r
		eg.Go(func() error {
			result, err := fn(ctx, w.Contexts[r])
			if err != nil {
				return fmt.Errorf("test: world: run: role %s: %w", r, err)
			}
			out[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
