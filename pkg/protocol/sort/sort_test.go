package sort_test

import (
	gocontext "context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ipa-mpc/internal/test"
	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/protocol/sort"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

// TestGenerateRadixPermutationIsStable exercises spec.md §8 testable
// properties 1 (reconstruction) and 2 (sort stability): two records with
// equal 3-bit keys must come out in their original relative order.
func TestGenerateRadixPermutationIsStable(t *testing.T) {
	f := field.Fp61
	w, err := test.NewWorld(f)
	require.NoError(t, err)

	// Keys, little-endian 3-bit: record0=3(011), record1=1(001),
	// record2=3(011, a duplicate of record0), record3=2(010).
	keys := []uint64{3, 1, 3, 2}
	const width = 3
	bitShares := make([][width][3]share.Replicated, len(keys))
	for i, k := range keys {
		for b := 0; b < width; b++ {
			bit := (k >> uint(b)) & 1
			s, err := test.ShareUint64(f, bit)
			require.NoError(t, err)
			bitShares[i][b] = s
		}
	}

	results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
		ic = ic.Narrow("sort-test")
		idx := test.RoleIndex(ic.Role())
		bitColumns := make([][]share.Replicated, width)
		for b := 0; b < width; b++ {
			col := make([]share.Replicated, len(keys))
			for i := range keys {
				col[i] = bitShares[i][b][idx]
			}
			bitColumns[b] = col
		}
		return sort.GenerateRadixPermutation(ctx, ic, bitColumns)
	})
	require.NoError(t, err)

	// Ascending stable order: key1 (record1), key2 (record3), then the two
	// key3 records in original order (record0 before record2).
	want := []int{1, 3, 0, 2}
	for p, r := range results {
		perm, ok := r.([]int)
		require.Truef(t, ok, "party %d returned unexpected type", p)
		assert.Equalf(t, want, perm, "party %d", p)
	}
}

func TestApplyPermutation(t *testing.T) {
	perm := []int{1, 3, 0, 2}
	data := []string{"r0", "r1", "r2", "r3"}
	out, err := sort.ApplyPermutation(perm, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3", "r0", "r2"}, out)
}

func TestApplyPermutationLengthMismatch(t *testing.T) {
	_, err := sort.ApplyPermutation([]int{0, 1}, []string{"r0"})
	assert.Error(t, err)
}
