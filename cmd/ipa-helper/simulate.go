package main

import (
	gocontext "context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/ipa-mpc/internal/test"
	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/curve"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/ingest"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/query"
)

// syntheticRows builds n input rows split across a handful of synthetic
// users: each user gets one source event followed by zero to three
// trigger events sharing its match key, exercising the attribution
// pipeline's run-boundary logic the way a real campaign's report stream
// would.
func syntheticRows(rng *rand.Rand, n int, maxBreakdownKey uint32) []*ingest.InputRow {
	rows := make([]*ingest.InputRow, 0, n)
	var matchKey uint64
	for len(rows) < n {
		matchKey++
		breakdown := uint64(rng.Intn(int(maxBreakdownKey)))
		rows = append(rows, ingest.PlaintextMatchKey(uint64(len(rows)), matchKey, ingest.Source, breakdown, 0))
		triggers := rng.Intn(4)
		for i := 0; i < triggers && len(rows) < n; i++ {
			value := uint64(1 + rng.Intn(7))
			rows = append(rows, ingest.PlaintextMatchKey(uint64(len(rows)), matchKey, ingest.Trigger, breakdown, value))
		}
	}
	return rows
}

// shareRows splits plaintext rows into one query.SharedRow slice per
// party, using internal/test's sharing helpers.
func shareRows(f field.Field, rows []*ingest.InputRow) ([3][]query.SharedRow, error) {
	var out [3][]query.SharedRow
	for p := range out {
		out[p] = make([]query.SharedRow, len(rows))
	}
	for i, row := range rows {
		matchKeyShares, err := test.ShareBits(f, row.MatchKey)
		if err != nil {
			return out, fmt.Errorf("simulate: share row %d match key: %w", i, err)
		}
		isTrigger := uint64(0)
		if row.EventType == ingest.Trigger {
			isTrigger = 1
		}
		isTriggerShares, err := test.ShareUint64(f, isTrigger)
		if err != nil {
			return out, fmt.Errorf("simulate: share row %d trigger flag: %w", i, err)
		}
		breakdownShares, err := test.ShareUint64(f, row.BreakdownKey.Uint64())
		if err != nil {
			return out, fmt.Errorf("simulate: share row %d breakdown key: %w", i, err)
		}
		valueShares, err := test.ShareUint64(f, row.TriggerValue.Uint64())
		if err != nil {
			return out, fmt.Errorf("simulate: share row %d trigger value: %w", i, err)
		}
		for p := 0; p < 3; p++ {
			out[p][i] = query.SharedRow{
				MatchKeyBits: matchKeyShares[p],
				IsTrigger:    isTriggerShares[p],
				BreakdownKey: breakdownShares[p],
				TriggerValue: valueShares[p],
			}
		}
	}
	return out, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := query.Config{
		PerUserCreditCap: perUserCap,
		MaxBreakdownKey:  maxBreakdownKey,
		WithDP:           withDP,
		Epsilon:          epsilon,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("=== IPA query simulation ===\n")
	fmt.Printf("rows: %d, per-user cap: %d, breakdown keys: %d, dp: %v\n", rows, perUserCap, maxBreakdownKey, withDP)

	rng := rand.New(rand.NewSource(seed))
	plaintext := syntheticRows(rng, rows, maxBreakdownKey)
	fmt.Printf("generated %d synthetic input rows\n", len(plaintext))

	w, err := test.NewWorld(field.Fp32)
	if err != nil {
		return fmt.Errorf("build world: %w", err)
	}

	sharedRows, err := shareRows(field.Fp32, plaintext)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
		role := ic.Role()
		mainCtx := ic.Narrow("main")
		oprfCtx := w.ContextFor(role, curve.ScalarField).Narrow("oprf")
		q := query.New(cfg)
		if err := q.Prepare(); err != nil {
			return nil, err
		}
		return q.RunQuery(ctx, mainCtx, oprfCtx, sharedRows[test.RoleIndex(role)])
	})
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}
	fmt.Printf("completed in %s\n", time.Since(start))

	return printBuckets(results)
}

func printBuckets(results [3]interface{}) error {
	for i, r := range results {
		res, ok := r.(*query.Result)
		if !ok {
			return fmt.Errorf("party %s returned an unexpected result type", party.AllRoles()[i])
		}
		fmt.Printf("\nbreakdown-key buckets (revealed, party %s's view):\n", party.AllRoles()[i])
		for b, v := range res.Buckets {
			bytes, err := v.MarshalBinary()
			if err != nil {
				return err
			}
			fmt.Printf("  bucket %2d: %x\n", b, bytes)
		}
	}
	return nil
}
