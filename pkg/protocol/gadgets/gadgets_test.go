package gadgets_test

import (
	gocontext "context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ipa-mpc/internal/test"
	"github.com/luxfi/ipa-mpc/pkg/ba"
	ipacontext "github.com/luxfi/ipa-mpc/pkg/context"
	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/protocol/gadgets"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/share"
)

func TestMultiplyAndReveal(t *testing.T) {
	f := field.Fp61
	w, err := test.NewWorld(f)
	require.NoError(t, err)

	aShares, err := test.ShareUint64(f, 6)
	require.NoError(t, err)
	bShares, err := test.ShareUint64(f, 7)
	require.NoError(t, err)

	results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
		ic = ic.Narrow("multiply-test")
		i := test.RoleIndex(ic.Role())
		product, err := gadgets.Multiply(ctx, ic, recordid.ID(0), aShares[i], bShares[i])
		if err != nil {
			return nil, err
		}
		return gadgets.Reveal(ctx, ic.Narrow("reveal"), recordid.ID(0), product)
	})
	require.NoError(t, err)

	want := f.FromUint64(42)
	for i, r := range results {
		got, ok := r.(field.Element)
		require.Truef(t, ok, "party %d returned unexpected type", i)
		assert.True(t, want.Equal(got), "party %d", i)
	}
}

func TestRevealOfConstantZero(t *testing.T) {
	f := field.Fp61
	w, err := test.NewWorld(f)
	require.NoError(t, err)

	zero := share.New(f.Zero(), f.Zero())

	results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
		ic = ic.Narrow("reveal-zero-test")
		return gadgets.Reveal(ctx, ic, recordid.ID(0), zero)
	})
	require.NoError(t, err)

	for i, r := range results {
		got, ok := r.(field.Element)
		require.True(t, ok)
		assert.Truef(t, got.IsZero(), "party %d", i)
	}
}

func TestReshareToEachDestination(t *testing.T) {
	f := field.Fp61
	for _, dest := range party.AllRoles() {
		dest := dest
		t.Run(dest.String(), func(t *testing.T) {
			w, err := test.NewWorld(f)
			require.NoError(t, err)

			shares, err := test.ShareUint64(f, 17)
			require.NoError(t, err)

			results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
				ic = ic.Narrow("reshare-test")
				i := test.RoleIndex(ic.Role())
				reshared, err := gadgets.Reshare(ctx, ic, recordid.ID(0), shares[i], dest)
				if err != nil {
					return nil, err
				}
				return gadgets.Reveal(ctx, ic.Narrow("reveal"), recordid.ID(0), reshared)
			})
			require.NoError(t, err)

			want := f.FromUint64(17)
			for i, r := range results {
				got, ok := r.(field.Element)
				require.Truef(t, ok, "party %d returned unexpected type", i)
				assert.True(t, want.Equal(got), "party %d", i)
			}
		})
	}
}

func TestConvertBitRoundTrip(t *testing.T) {
	f := field.Fp61
	for _, bit := range []uint8{0, 1} {
		bit := bit
		t.Run(fmt.Sprintf("bit=%d", bit), func(t *testing.T) {
			w, err := test.NewWorld(f)
			require.NoError(t, err)

			arr := ba.New(1)
			if bit == 1 {
				arr.SetBit(0, 1)
			}
			xorShares, err := test.ShareBits(f, arr)
			require.NoError(t, err)

			results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
				ic = ic.Narrow("convert-bit-test")
				i := test.RoleIndex(ic.Role())
				converted, err := gadgets.ConvertBit(ctx, ic, recordid.ID(0), xorShares[i][0])
				if err != nil {
					return nil, err
				}
				return gadgets.Reveal(ctx, ic.Narrow("reveal"), recordid.ID(0), converted)
			})
			require.NoError(t, err)

			want := f.FromUint64(uint64(bit))
			for i, r := range results {
				got, ok := r.(field.Element)
				require.Truef(t, ok, "party %d returned unexpected type", i)
				assert.True(t, want.Equal(got), "party %d", i)
			}
		})
	}
}

func TestConvertBitsAndCombineToValue(t *testing.T) {
	f := field.Fp61
	w, err := test.NewWorld(f)
	require.NoError(t, err)

	const width = 5
	const value = 13 // 01101 little-endian
	arr := ba.FromUint64(value, width)
	xorShares, err := test.ShareBits(f, arr)
	require.NoError(t, err)

	results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
		ic = ic.Narrow("convert-bits-test")
		i := test.RoleIndex(ic.Role())
		converted, err := gadgets.ConvertBits(ctx, ic, recordid.ID(0), xorShares[i])
		if err != nil {
			return nil, err
		}
		combined := gadgets.CombineToValue(f, converted)
		return gadgets.Reveal(ctx, ic.Narrow("reveal"), recordid.ID(0), combined)
	})
	require.NoError(t, err)

	want := f.FromUint64(value)
	for i, r := range results {
		got, ok := r.(field.Element)
		require.Truef(t, ok, "party %d returned unexpected type", i)
		assert.True(t, want.Equal(got), "party %d", i)
	}
}

func TestGenerateBitPermutationIsStable(t *testing.T) {
	f := field.Fp61
	w, err := test.NewWorld(f)
	require.NoError(t, err)

	// bits[i] is record i's sort bit; zeros rank first, in input order,
	// then ones, in input order (a stable sort by one bit).
	bits := []uint64{1, 0, 1, 0}
	shares := make([][3]share.Replicated, len(bits))
	for i, b := range bits {
		s, err := test.ShareUint64(f, b)
		require.NoError(t, err)
		shares[i] = s
	}

	results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
		ic = ic.Narrow("bitperm-test")
		idx := test.RoleIndex(ic.Role())
		col := make([]share.Replicated, len(bits))
		for i := range bits {
			col[i] = shares[i][idx]
		}
		ranks, err := gadgets.GenerateBitPermutation(ctx, ic, col)
		if err != nil {
			return nil, err
		}
		out := make([]field.Element, len(ranks))
		for i, r := range ranks {
			v, err := gadgets.Reveal(ctx, ic.Narrow(fmt.Sprintf("reveal-%d", i)), recordid.ID(i), r)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	})
	require.NoError(t, err)

	want := []uint64{2, 0, 3, 1}
	for p, r := range results {
		out, ok := r.([]field.Element)
		require.Truef(t, ok, "party %d returned unexpected type", p)
		for i, w := range want {
			assert.Truef(t, f.FromUint64(w).Equal(out[i]), "party %d rank %d", p, i)
		}
	}
}

func TestBitDecomposeRecoversBits(t *testing.T) {
	f := field.Fp61
	w, err := test.NewWorld(f)
	require.NoError(t, err)

	const value = 5 // 0101 little-endian
	const width = 4
	shares, err := test.ShareUint64(f, value)
	require.NoError(t, err)

	results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
		ic = ic.Narrow("bitdecompose-test")
		i := test.RoleIndex(ic.Role())
		bits, err := gadgets.BitDecompose(ctx, ic, recordid.ID(0), shares[i], width)
		if err != nil {
			return nil, err
		}
		out := make([]field.Element, len(bits))
		for j, b := range bits {
			v, err := gadgets.Reveal(ctx, ic.Narrow(fmt.Sprintf("reveal-%d", j)), recordid.ID(j), b)
			if err != nil {
				return nil, err
			}
			out[j] = v
		}
		return out, nil
	})
	require.NoError(t, err)

	want := []uint64{1, 0, 1, 0}
	for p, r := range results {
		out, ok := r.([]field.Element)
		require.Truef(t, ok, "party %d returned unexpected type", p)
		for i, w := range want {
			assert.Truef(t, f.FromUint64(w).Equal(out[i]), "party %d bit %d", p, i)
		}
	}
}

func TestBitwiseEqual(t *testing.T) {
	f := field.Fp61

	run := func(t *testing.T, a, b []uint64) field.Element {
		w, err := test.NewWorld(f)
		require.NoError(t, err)

		aShares := make([][3]share.Replicated, len(a))
		bShares := make([][3]share.Replicated, len(b))
		for i := range a {
			s, err := test.ShareUint64(f, a[i])
			require.NoError(t, err)
			aShares[i] = s
		}
		for i := range b {
			s, err := test.ShareUint64(f, b[i])
			require.NoError(t, err)
			bShares[i] = s
		}

		results, err := w.Run(gocontext.Background(), func(ctx gocontext.Context, ic ipacontext.Context) (interface{}, error) {
			ic = ic.Narrow("bitwise-equal-test")
			idx := test.RoleIndex(ic.Role())
			aCol := make([]share.Replicated, len(a))
			bCol := make([]share.Replicated, len(b))
			for i := range a {
				aCol[i] = aShares[i][idx]
			}
			for i := range b {
				bCol[i] = bShares[i][idx]
			}
			eq, err := gadgets.BitwiseEqual(ctx, ic, recordid.ID(0), aCol, bCol)
			if err != nil {
				return nil, err
			}
			return gadgets.Reveal(ctx, ic.Narrow("reveal"), recordid.ID(0), eq)
		})
		require.NoError(t, err)

		got, ok := results[0].(field.Element)
		require.True(t, ok)
		for i, r := range results {
			ri, ok := r.(field.Element)
			require.Truef(t, ok, "party %d returned unexpected type", i)
			assert.True(t, got.Equal(ri), "party %d", i)
		}
		return got
	}

	t.Run("equal", func(t *testing.T) {
		got := run(t, []uint64{1, 0, 1, 1}, []uint64{1, 0, 1, 1})
		assert.True(t, f.FromUint64(1).Equal(got))
	})
	t.Run("not equal", func(t *testing.T) {
		got := run(t, []uint64{1, 0, 1, 1}, []uint64{1, 0, 0, 1})
		assert.True(t, f.Zero().Equal(got))
	})
}
