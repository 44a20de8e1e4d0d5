// Package query implements the query-level configuration, state machine,
// and end-to-end orchestration named in spec.md sections 3 and 6:
// Config validation, the Empty -> Preparing -> Running -> Completed
// | Failed lifecycle, and RunQuery, which threads one party's input rows
// through every pipeline stage in order.
package query

import (
	gocontext "context"
	"fmt"

	"github.com/luxfi/ipa-mpc/pkg/ba"
	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/curve"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/ipaerr"
	"github.com/luxfi/ipa-mpc/pkg/protocol/aggregate"
	"github.com/luxfi/ipa-mpc/pkg/protocol/attribution"
	"github.com/luxfi/ipa-mpc/pkg/protocol/gadgets"
	"github.com/luxfi/ipa-mpc/pkg/protocol/oprf"
	"github.com/luxfi/ipa-mpc/pkg/protocol/sort"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// legalCreditCaps is the enumerated set from spec.md section 6; anything
// else is InvalidConfig rather than rounded to the nearest legal value
// (spec.md section 9's open-question resolution).
var legalCreditCaps = map[uint64]bool{1: true, 2: true, 4: true, 8: true, 16: true, 32: true, 64: true, 128: true}

// Config is the query configuration named in spec.md section 6.
type Config struct {
	PerUserCreditCap         uint64
	AttributionWindowSeconds *uint32
	MaxBreakdownKey          uint32
	WithDP                   bool
	Epsilon                  float64
	PlaintextMatchKeys       bool
}

// Validate enforces the legal configuration set, following the teacher's
// Config.Validate idiom (protocols/lss/config).
func (c Config) Validate() error {
	if !legalCreditCaps[c.PerUserCreditCap] {
		return ipaerr.Newf(ipaerr.InvalidConfig, "per_user_credit_cap %d is not one of the legal values", c.PerUserCreditCap)
	}
	if c.MaxBreakdownKey == 0 {
		return ipaerr.Newf(ipaerr.InvalidConfig, "max_breakdown_key must be positive")
	}
	if c.WithDP && c.Epsilon <= 0 {
		return ipaerr.Newf(ipaerr.InvalidConfig, "epsilon must be positive when with_dp is set")
	}
	return nil
}

func (c Config) mechanism() aggregate.Mechanism {
	if !c.WithDP {
		return aggregate.NoDP()
	}
	return aggregate.DiscreteLaplace(c.Epsilon)
}

// State is the query lifecycle from spec.md section 3.
type State int

const (
	Empty State = iota
	Preparing
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Preparing:
		return "Preparing"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "unknown"
	}
}

// Query tracks one query's lifecycle and config. The MPC core only
// operates while State is Running (spec.md section 3); state transitions
// outside that are the coordination layer's responsibility and are
// exposed here only as bookkeeping.
type Query struct {
	Config Config
	State  State
}

// New builds a query in the Empty state.
func New(cfg Config) *Query {
	return &Query{Config: cfg, State: Empty}
}

// Prepare validates the config and advances Empty -> Preparing.
func (q *Query) Prepare() error {
	if q.State != Empty {
		return ipaerr.Newf(ipaerr.Internal, "prepare called from state %s", q.State)
	}
	if err := q.Config.Validate(); err != nil {
		q.State = Failed
		return err
	}
	q.State = Preparing
	return nil
}

// SharedRow is one party's replicated-share view of a single input row,
// ready for the pipeline (spec.md section 3, "input row (plaintext)"
// after sharing).
type SharedRow struct {
	MatchKeyBits []share.Replicated // little-endian XOR-shared match key bits
	IsTrigger    share.Replicated
	BreakdownKey share.Replicated
	TriggerValue share.Replicated
}

// Result is the final, fully revealed per-breakdown-key bucket vector.
type Result struct {
	Buckets []field.Element
}

// RunQuery drives one party's full pipeline over rows: modulus-convert
// match keys, OPRF-evaluate and sort by tag, attribute and cap credit,
// aggregate by breakdown key, add configured DP noise, and reveal the
// bucket vector -- the control-flow chain named in spec.md section 2.
func (q *Query) RunQuery(ctx gocontext.Context, ic ipacontext.Context, oprfIC ipacontext.Context, rows []SharedRow) (*Result, error) {
	if q.State != Preparing && q.State != Running {
		return nil, ipaerr.Newf(ipaerr.Internal, "run query called from state %s", q.State)
	}
	q.State = Running

	result, err := q.runPipeline(ctx, ic, oprfIC, rows)
	if err != nil {
		q.State = Failed
		return nil, err
	}
	q.State = Completed
	return result, nil
}

func (q *Query) runPipeline(ctx gocontext.Context, ic ipacontext.Context, oprfIC ipacontext.Context, rows []SharedRow) (*Result, error) {
	n := len(rows)
	if n == 0 {
		buckets := make([]field.Element, q.Config.MaxBreakdownKey)
		f := ic.Field()
		for i := range buckets {
			buckets[i] = f.Zero()
		}
		return &Result{Buckets: buckets}, nil
	}

	keyShare, err := oprf.GenerateKey(oprfIC.Narrow("key"))
	if err != nil {
		return nil, fmt.Errorf("query: oprf key: %w", err)
	}

	matchKeyArith := make([][]share.Replicated, n)
	tags := make([]*curve.Point, n)
	for i, row := range rows {
		rc := ic.Narrow(fmt.Sprintf("convert-%d", i))
		bits, err := gadgets.ConvertBits(ctx, rc, recordid.ID(i), row.MatchKeyBits)
		if err != nil {
			return nil, fmt.Errorf("query: convert match key %d: %w", i, err)
		}
		matchKeyArith[i] = bits

		// The match key's XOR-shared bits are converted a second time
		// under the scalar-field context so OPRF gets its own additive
		// share of the same integer directly, rather than reinterpreting
		// an already-Fp32-shared value's byte encoding -- two different
		// moduli cannot share the same additive share components.
		oc := oprfIC.Narrow(fmt.Sprintf("convert-%d", i))
		scalarBits, err := gadgets.ConvertBits(ctx, oc, recordid.ID(i), row.MatchKeyBits)
		if err != nil {
			return nil, fmt.Errorf("query: convert match key %d for oprf: %w", i, err)
		}
		oprfShare := gadgets.CombineToValue(oprfIC.Field(), scalarBits)

		tag, err := oprf.Evaluate(ctx, oprfIC.Narrow(fmt.Sprintf("evaluate-%d", i)), recordid.ID(i), oprfShare, keyShare)
		if err != nil {
			return nil, fmt.Errorf("query: oprf evaluate %d: %w", i, err)
		}
		tags[i] = tag
	}

	bitColumns := make([][]share.Replicated, ba.MatchKeyBits)
	for bitIdx := range bitColumns {
		col := make([]share.Replicated, n)
		for i := range rows {
			col[i] = matchKeyArith[i][bitIdx]
		}
		bitColumns[bitIdx] = col
	}
	perm, err := sort.GenerateRadixPermutation(ctx, ic.Narrow("sort"), bitColumns)
	if err != nil {
		return nil, fmt.Errorf("query: radix sort: %w", err)
	}

	sortedRows := make([]attribution.Row, n)
	for newPos, oldPos := range perm {
		sortedRows[newPos] = attribution.Row{
			Tag:          tags[oldPos],
			IsTrigger:    rows[oldPos].IsTrigger,
			BreakdownKey: rows[oldPos].BreakdownKey,
			TriggerValue: rows[oldPos].TriggerValue,
		}
	}

	credited, err := attribution.AccumulateAndCap(ctx, ic.Narrow("attribute"), sortedRows, q.Config.PerUserCreditCap)
	if err != nil {
		return nil, fmt.Errorf("query: attribute and cap: %w", err)
	}

	buckets, err := aggregate.Aggregate(ctx, ic.Narrow("aggregate"), credited, int(q.Config.MaxBreakdownKey))
	if err != nil {
		return nil, fmt.Errorf("query: aggregate: %w", err)
	}

	revealed, err := aggregate.Finalize(ctx, ic.Narrow("finalize"), buckets, q.Config.mechanism())
	if err != nil {
		return nil, fmt.Errorf("query: finalize: %w", err)
	}
	return &Result{Buckets: revealed}, nil
}

