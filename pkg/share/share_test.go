package share

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/party"
)

// reconstruct combines three parties' Replicated shares of a single value
// (H1=(x1,x2), H2=(x2,x3), H3=(x3,x1)) by taking each party's Left
// component, the layout used throughout this module's gadgets.
func reconstruct(shares [3]Replicated) field.Element {
	return shares[0].Left.Add(shares[1].Left).Add(shares[2].Left)
}

func shareValue(f field.Field, x1, x2, x3 field.Element) [3]Replicated {
	return [3]Replicated{
		New(x1, x2), // H1
		New(x2, x3), // H2
		New(x3, x1), // H3
	}
}

func TestAddIsLocalAndReconstructs(t *testing.T) {
	f := field.Fp61
	a := shareValue(f, f.FromUint64(3), f.FromUint64(5), f.FromUint64(7))
	b := shareValue(f, f.FromUint64(1), f.FromUint64(2), f.FromUint64(4))

	var sum [3]Replicated
	for i := range sum {
		sum[i] = a[i].Add(b[i])
	}

	want := f.FromUint64(3 + 5 + 7 + 1 + 2 + 4)
	assert.True(t, reconstruct(sum).Equal(want))
}

func TestSubAndNeg(t *testing.T) {
	f := field.Fp61
	a := shareValue(f, f.FromUint64(10), f.FromUint64(0), f.FromUint64(0))
	b := shareValue(f, f.FromUint64(4), f.FromUint64(0), f.FromUint64(0))

	var diff [3]Replicated
	for i := range diff {
		diff[i] = a[i].Sub(b[i])
	}
	assert.True(t, reconstruct(diff).Equal(f.FromUint64(6)))

	var neg [3]Replicated
	for i := range neg {
		neg[i] = a[i].Neg()
	}
	assert.True(t, reconstruct(neg).Equal(f.FromUint64(10).Neg()))
}

func TestScalarMul(t *testing.T) {
	f := field.Fp61
	a := shareValue(f, f.FromUint64(2), f.FromUint64(3), f.FromUint64(5))
	c := f.FromUint64(7)

	var scaled [3]Replicated
	for i := range scaled {
		scaled[i] = a[i].ScalarMul(c)
	}
	assert.True(t, reconstruct(scaled).Equal(f.FromUint64((2 + 3 + 5) * 7)))
}

func TestAddConstantOnlyTouchesH1AndH3(t *testing.T) {
	f := field.Fp61
	a := shareValue(f, f.FromUint64(2), f.FromUint64(3), f.FromUint64(5))
	c := f.FromUint64(11)

	h1 := a[0].AddConstant(party.H1, c)
	h2 := a[1].AddConstant(party.H2, c)
	h3 := a[2].AddConstant(party.H3, c)

	assert.True(t, h2.Left.Equal(a[1].Left))
	assert.True(t, h2.Right.Equal(a[1].Right))

	result := reconstruct([3]Replicated{h1, h2, h3})
	assert.True(t, result.Equal(f.FromUint64(2+3+5+11)))
}
