// Command ipa-helper drives an in-memory 3-party IPA query end to end,
// the way cmd/threshold-cli drives its protocols, for manual exercise of
// the pipeline without a real HTTPS deployment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rows            int
	perUserCap      uint64
	maxBreakdownKey uint32
	withDP          bool
	epsilon         float64
	seed            int64

	rootCmd = &cobra.Command{
		Use:   "ipa-helper",
		Short: "Drive IPA MPC queries for local exercise and benchmarking",
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run a synthetic query across an in-memory 3-party network",
		RunE:  runSimulate,
	}
)

func init() {
	simulateCmd.Flags().IntVarP(&rows, "rows", "n", 1000, "number of synthetic input rows")
	simulateCmd.Flags().Uint64VarP(&perUserCap, "cap", "c", 16, "per-user credit cap (must be a power of two, max 128)")
	simulateCmd.Flags().Uint32VarP(&maxBreakdownKey, "breakdown-keys", "b", 8, "number of breakdown-key buckets")
	simulateCmd.Flags().BoolVar(&withDP, "with-dp", false, "add discrete-Laplace DP noise to the output")
	simulateCmd.Flags().Float64Var(&epsilon, "epsilon", 1.0, "DP epsilon, used only with --with-dp")
	simulateCmd.Flags().Int64Var(&seed, "seed", 1, "synthetic input row PRNG seed")

	rootCmd.AddCommand(simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ipa-helper:", err)
		os.Exit(1)
	}
}
