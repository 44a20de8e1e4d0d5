// Package attribution implements spec.md section 4.8, accumulation and
// capping: after the oblivious radix sort groups records by OPRF tag,
// each trigger event's value is credited to the nearest preceding source
// event in the same user run, capped at per_user_credit_cap, with only
// the last contributing source in each run retaining its credit.
//
// Every step here works on secret shares; the only values ever revealed
// are the OPRF tags themselves (already revealed by pkg/protocol/oprf,
// per spec.md section 4.7) and the masked totals BitDecompose reveals
// internally for bit-level capping. No per-row credit or breakdown key is
// ever opened, matching spec.md's "no reveal before aggregation"
// invariant.
package attribution

import (
	gocontext "context"
	"fmt"

	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/curve"
	"github.com/luxfi/ipa-mpc/pkg/protocol/gadgets"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// Row is one sorted record's secret-shared attribution inputs. Tag is
// public (already revealed) since it drove the sort itself.
type Row struct {
	Tag          *curve.Point
	IsTrigger    share.Replicated // 1 if this row is a trigger event, 0 if a source event
	BreakdownKey share.Replicated
	TriggerValue share.Replicated
}

// Credited is the attribution pipeline's per-row output: the credit
// finally retained by this row (zero for every row except the last
// contributing source per user) and the breakdown key it should be
// aggregated under.
type Credited struct {
	BreakdownKey share.Replicated
	Credit       share.Replicated
}

// capBitWidth bounds BitDecompose's output: spec.md's legal cap values
// top out at 128, and trigger values are small (a handful of bits), so a
// running per-user total comfortably fits in 16 bits.
const capBitWidth = 16

// helperBits computes, for every row after the first, a public indicator
// that the row shares its OPRF tag with its immediate predecessor (spec.md
// section 4.8: "h_0 is 0 by convention"). Tags are already public at this
// point in the pipeline, so this is a local comparison, not a gadget
// call: running BitwiseEqual over a secret bit-decomposition of a value
// every party already holds in the clear would spend MPC rounds to learn
// something already known.
func helperBits(tags []*curve.Point) []bool {
	h := make([]bool, len(tags))
	for i := 1; i < len(tags); i++ {
		h[i] = tags[i].Equal(tags[i-1])
	}
	return h
}

// AccumulateAndCap runs the full credit-accumulation, capping, and
// last-touch selection pass over a slice of rows already sorted by OPRF
// tag, returning one Credited entry per row ready for aggregation.
func AccumulateAndCap(ctx gocontext.Context, ic ipacontext.Context, rows []Row, perUserCreditCap uint64) ([]Credited, error) {
	n := len(rows)
	if n == 0 {
		return nil, nil
	}
	f := ic.Field()
	one := gadgets.PublicConstant(f, ic.Role(), f.FromUint64(1))
	zero := share.New(f.Zero(), f.Zero())

	tags := make([]*curve.Point, n)
	for i, r := range rows {
		tags[i] = r.Tag
	}
	h := helperBits(tags)

	isSource := make([]share.Replicated, n)
	for i, r := range rows {
		isSource[i] = one.Sub(r.IsTrigger)
	}

	// Running credit total for the current user, and the breakdown key
	// inherited from the nearest preceding source row. Both boundary
	// resets are ScalarMul by a public 0/1 value, so they cost no MPC
	// rounds at all.
	runningCredit := make([]share.Replicated, n)
	runningBreakdown := make([]share.Replicated, n)
	prevCredit := zero
	prevBreakdown := zero
	for i, r := range rows {
		rc := ic.Narrow(fmt.Sprintf("accumulate-%d", i))
		hField := f.Zero()
		if h[i] {
			hField = f.FromUint64(1)
		}

		contribution, err := gadgets.Multiply(ctx, rc.Narrow("contribution"), recordid.ID(i), r.IsTrigger, r.TriggerValue)
		if err != nil {
			return nil, fmt.Errorf("attribution: accumulate credit: row %d: %w", i, err)
		}
		runningCredit[i] = prevCredit.ScalarMul(hField).Add(contribution)

		notSource := r.IsTrigger // 1 - isSource
		carriedBreakdown := prevBreakdown.ScalarMul(hField)
		carriedMasked, err := gadgets.Multiply(ctx, rc.Narrow("carry-breakdown"), recordid.ID(i), notSource, carriedBreakdown)
		if err != nil {
			return nil, fmt.Errorf("attribution: carry breakdown: row %d: %w", i, err)
		}
		ownMasked, err := gadgets.Multiply(ctx, rc.Narrow("own-breakdown"), recordid.ID(i), isSource[i], r.BreakdownKey)
		if err != nil {
			return nil, fmt.Errorf("attribution: own breakdown: row %d: %w", i, err)
		}
		runningBreakdown[i] = ownMasked.Add(carriedMasked)

		prevCredit = runningCredit[i]
		prevBreakdown = runningBreakdown[i]
	}

	cappedCredit, err := capRunningCredit(ctx, ic, runningCredit, h, perUserCreditCap)
	if err != nil {
		return nil, fmt.Errorf("attribution: cap credit: %w", err)
	}

	// Last-touch: a row retains its capped credit only if it is a source
	// and no later row within the same tag run is also a source -- i.e. it
	// is the final touchpoint any trigger in this run would attribute to,
	// regardless of whether it happens to be the run's last row overall (a
	// run ending on a trailing trigger still credits its last source).
	// Whether a row is a source is itself secret (IsTrigger is a share),
	// so "is there a later source in this run" cannot be read off publicly
	// the way the tag-equality boundary h can; it is computed by a
	// backward scan of OR-accumulated Multiply calls mirroring the
	// forward accumulation above.
	isSourceOrLater := make([]share.Replicated, n)
	hasLaterSource := make([]share.Replicated, n)
	for i := n - 1; i >= 0; i-- {
		if i == n-1 || !h[i+1] {
			hasLaterSource[i] = zero
		} else {
			hasLaterSource[i] = isSourceOrLater[i+1]
		}
		rc := ic.Narrow(fmt.Sprintf("later-source-%d", i))
		orTerm, err := gadgets.Multiply(ctx, rc, recordid.ID(i), isSource[i], hasLaterSource[i])
		if err != nil {
			return nil, fmt.Errorf("attribution: later-source scan: row %d: %w", i, err)
		}
		isSourceOrLater[i] = isSource[i].Add(hasLaterSource[i]).Sub(orTerm)
	}

	// runEndCredit broadcasts each run's final capped credit total back to
	// every row in that run: the last source's own row only holds the
	// running total as of its position, not the later triggers the run
	// still accumulates after it, so the value actually owed to the last
	// source is whatever the run's last row ends up with. This is a plain
	// backward copy guided by the public h boundary, no gadget call.
	runEndCredit := make([]share.Replicated, n)
	for i := n - 1; i >= 0; i-- {
		if i == n-1 || !h[i+1] {
			runEndCredit[i] = cappedCredit[i]
		} else {
			runEndCredit[i] = runEndCredit[i+1]
		}
	}

	out := make([]Credited, n)
	for i := range rows {
		notLaterSource := one.Sub(hasLaterSource[i])
		rc := ic.Narrow(fmt.Sprintf("select-%d", i))
		isLastSource, err := gadgets.Multiply(ctx, rc.Narrow("is-last-source"), recordid.ID(i), isSource[i], notLaterSource)
		if err != nil {
			return nil, fmt.Errorf("attribution: last touch gate: row %d: %w", i, err)
		}
		selected, err := gadgets.Multiply(ctx, rc.Narrow("apply"), recordid.ID(i), isLastSource, runEndCredit[i])
		if err != nil {
			return nil, fmt.Errorf("attribution: last touch select: row %d: %w", i, err)
		}
		out[i] = Credited{BreakdownKey: runningBreakdown[i], Credit: selected}
	}
	return out, nil
}

// capRunningCredit clamps each row's running per-user credit total to
// perUserCreditCap, spec.md's "comparing the running sum against the cap
// bit by bit and forcing subsequent contributions to zero once the cap is
// reached". perUserCreditCap must be a power of two (spec.md's legal set
// is {1,2,4,8,16,32,64,128}), which lets the bit-level test collapse to
// "any bit at or above log2(cap) is set" instead of a general comparator.
func capRunningCredit(ctx gocontext.Context, ic ipacontext.Context, running []share.Replicated, h []bool, perUserCreditCap uint64) ([]share.Replicated, error) {
	f := ic.Field()
	capBitPos := 0
	for (uint64(1) << uint(capBitPos)) < perUserCreditCap {
		capBitPos++
	}
	one := gadgets.PublicConstant(f, ic.Role(), f.FromUint64(1))
	capConst := gadgets.PublicConstant(f, ic.Role(), f.FromUint64(perUserCreditCap))
	zero := share.New(f.Zero(), f.Zero())

	out := make([]share.Replicated, len(running))
	exceededSoFar := zero
	for i, rc := range running {
		nc := ic.Narrow(fmt.Sprintf("cap-%d", i))
		bits, err := gadgets.BitDecompose(ctx, nc.Narrow("decompose"), recordid.ID(i), rc, capBitWidth)
		if err != nil {
			return nil, fmt.Errorf("cap row %d: decompose: %w", i, err)
		}

		// exceedsCap = 1 - product(1 - bit_j) for every bit at or above
		// capBitPos, i.e. any of those high bits being set.
		terms := make([]share.Replicated, 0, len(bits)-capBitPos)
		for j := capBitPos; j < len(bits); j++ {
			terms = append(terms, one.Sub(bits[j]))
		}
		prod := terms[0]
		for k := 1; k < len(terms); k++ {
			p, err := gadgets.Multiply(ctx, nc.Narrow(fmt.Sprintf("prod-%d", k)), recordid.ID(i), prod, terms[k])
			if err != nil {
				return nil, fmt.Errorf("cap row %d: high-bit product: %w", i, err)
			}
			prod = p
		}
		exceedsThisStep := one.Sub(prod)

		hField := f.Zero()
		if i > 0 && h[i] {
			hField = f.FromUint64(1)
		}
		// exceededSoFar OR-accumulates within a run, local ScalarMul reset
		// at boundaries (h public) and one multiply for the OR's cross term.
		carried := exceededSoFar.ScalarMul(hField)
		crossTerm, err := gadgets.Multiply(ctx, nc.Narrow("exceed-or"), recordid.ID(i), carried, exceedsThisStep)
		if err != nil {
			return nil, fmt.Errorf("cap row %d: exceed accumulate: %w", i, err)
		}
		exceededSoFar = carried.Add(exceedsThisStep).Sub(crossTerm)

		// Once exceeded, freeze at the cap constant itself, not whatever
		// the running total last was below it; otherwise take this step's
		// running total. exceededSoFar is already reset to 0 at a run
		// boundary (via hField above), so a fresh run's first rows take
		// the "not exceeded" branch regardless of the previous run's fate.
		notExceeded := one.Sub(exceededSoFar)
		selected, err := gadgets.Multiply(ctx, nc.Narrow("select"), recordid.ID(i), notExceeded, rc)
		if err != nil {
			return nil, fmt.Errorf("cap row %d: select: %w", i, err)
		}
		frozenSelected, err := gadgets.Multiply(ctx, nc.Narrow("frozen-select"), recordid.ID(i), exceededSoFar, capConst)
		if err != nil {
			return nil, fmt.Errorf("cap row %d: frozen select: %w", i, err)
		}
		out[i] = selected.Add(frozenSelected)
	}
	return out, nil
}
