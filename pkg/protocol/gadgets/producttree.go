package gadgets

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// ProductTree multiplies a slice of shares together in O(log n) rounds
// using a balanced pairing rather than a linear chain, the same pattern
// BitwiseEqual uses internally to AND its per-bit equality indicators.
// Factored out here so other gadgets needing an AND-of-many-shares (e.g.
// aggregation's per-bucket equality test) don't re-derive it.
func ProductTree(ctx gocontext.Context, ic ipacontext.Context, record recordid.ID, terms []share.Replicated) (share.Replicated, error) {
	if len(terms) == 0 {
		return share.Replicated{}, fmt.Errorf("gadgets: product tree: empty input")
	}
	round := 0
	for len(terms) > 1 {
		next := make([]share.Replicated, 0, (len(terms)+1)/2)
		for i := 0; i+1 < len(terms); i += 2 {
			prod, err := Multiply(ctx, ic.Narrow(fmt.Sprintf("tree-%d-%d", round, i/2)), record, terms[i], terms[i+1])
			if err != nil {
				return share.Replicated{}, fmt.Errorf("gadgets: product tree: round %d: %w", round, err)
			}
			next = append(next, prod)
		}
		if len(terms)%2 == 1 {
			next = append(next, terms[len(terms)-1])
		}
		terms = next
		round++
	}
	return terms[0], nil
}
