// Package shuffle implements the three-party oblivious shuffle from
// spec.md section 4.5, grounded on apply_sort::shuffle::shuffle_shares
// (_examples/original_source/src/protocol/sort/apply_sort/mod.rs) and its
// generic Resharable trait, now pkg/share.Reshareable[T].
package shuffle

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/hash"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/protocol/gadgets"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// Shuffle randomly re-orders a replicated-shared row list so that no
// party, alone or by comparing notes with only one peer, can tell which
// output position any input record landed at (spec.md section 4.5). It
// runs three rounds, one per excluded party; in each round the other two
// parties jointly derive a permutation from randomness agreed only
// between themselves and reshare every row's fields toward the excluded
// party at the new position. Reshare's "destination" branch derives the
// destination's fresh share purely from PRSS (see gadgets.Reshare), so
// the excluded party never needs to know, or apply, the round's
// permutation to end up holding correctly-ordered shares.
//
// After three rounds the composed permutation is unknown to every party:
// each one sat out exactly one of the three rounds.
func Shuffle[T share.Reshareable[T]](ctx gocontext.Context, ic ipacontext.Context, rows []T) ([]T, error) {
	current := rows
	for round, excluded := range party.AllRoles() {
		mover := excluded.Peer(party.Right)
		partner := excluded.Peer(party.Left)

		rc := ic.Narrow(fmt.Sprintf("shuffle-round-%d", round))
		var perm []int
		if ic.Role() == mover || ic.Role() == partner {
			p, err := derivePermutation(rc, ic.Role() == partner, len(current))
			if err != nil {
				return nil, fmt.Errorf("shuffle: round %d: derive permutation: %w", round, err)
			}
			perm = p
		}

		next, err := reshareRound(ctx, rc, current, perm, excluded)
		if err != nil {
			return nil, fmt.Errorf("shuffle: round %d: %w", round, err)
		}
		current = next
	}
	return current, nil
}

// reshareRound reshares every row toward `to`, reading row j's source
// from current[perm[j]] when perm is non-nil (the two parties who know
// perm) or from current[j] otherwise (the excluded party's placeholder --
// its input value is never actually used by Reshare's destination
// branch).
func reshareRound[T share.Reshareable[T]](ctx gocontext.Context, ic ipacontext.Context, current []T, perm []int, to party.Role) ([]T, error) {
	n := len(current)
	out := make([]T, n)
	for j := 0; j < n; j++ {
		src := j
		if perm != nil {
			src = perm[j]
		}
		row := current[src]
		fields := row.Fields()
		newFields := make([]share.Replicated, len(fields))
		for k, f := range fields {
			nf, err := gadgets.Reshare(ctx, ic.Narrow(fmt.Sprintf("field-%d", k)), recordid.ID(j), f, to)
			if err != nil {
				return nil, fmt.Errorf("reshare row %d field %d: %w", j, k, err)
			}
			newFields[k] = nf
		}
		out[j] = row.WithFields(newFields)
	}
	return out, nil
}

// derivePermutation computes a Fisher-Yates permutation of [0,n) from a
// seed shared with exactly one ring neighbor, so the excluded party
// cannot reproduce it. `left` selects which neighbor: true uses the seed
// shared with this party's left neighbor (the convention `partner` uses
// in Shuffle), false uses the one shared with the right neighbor (the
// convention `mover` uses) -- both resolve to the same underlying
// pairwise key for the active pair, per prss.Endpoint.PairwiseSeed.
func derivePermutation(ic ipacontext.Context, left bool, n int) ([]int, error) {
	seed, err := ic.PRSS().PairwiseSeed(left, ic.Path(), recordid.ID(0))
	if err != nil {
		return nil, fmt.Errorf("derive permutation: %w", err)
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	stream := newSeededStream(seed)
	for i := n - 1; i > 0; i-- {
		j := stream.intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}

// seededStream expands a 32-byte seed into an arbitrarily long stream of
// pseudo-random uint64s by hashing seed||counter, avoiding a dependency
// on a seedable math/rand source for this deterministic, agreed-random
// derivation.
type seededStream struct {
	seed    [32]byte
	counter uint64
	buf     []byte
}

func newSeededStream(seed [32]byte) *seededStream {
	return &seededStream{seed: seed}
}

func (s *seededStream) next() uint64 {
	if len(s.buf) < 8 {
		h := hash.New()
		_ = h.WriteAny(s.seed[:])
		_ = h.WriteAny(s.counter)
		s.counter++
		s.buf = h.SumBytes()
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(s.buf[i])
	}
	s.buf = s.buf[8:]
	return v
}

// intn returns a value in [0, n) with a slight modulo bias that is
// immaterial here: the permutation only needs to be unpredictable to the
// excluded party, not exactly uniform.
func (s *seededStream) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.next() % uint64(n))
}
