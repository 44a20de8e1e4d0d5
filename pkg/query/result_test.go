package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ipa-mpc/pkg/field"
)

func TestResultCBORRoundTrip(t *testing.T) {
	want := &Result{Buckets: []field.Element{
		field.Fp32.FromUint64(0),
		field.Fp32.FromUint64(8),
		field.Fp32.FromUint64(5),
	}}

	enc, err := want.MarshalCBOR()
	require.NoError(t, err)
	assert.NotEmpty(t, enc)

	got, err := UnmarshalResultCBOR(field.Fp32, enc)
	require.NoError(t, err)
	require.Len(t, got.Buckets, len(want.Buckets))
	for i := range want.Buckets {
		assert.True(t, want.Buckets[i].Equal(got.Buckets[i]), "bucket %d", i)
	}
}

func TestResultCBORRejectsFieldMismatch(t *testing.T) {
	want := &Result{Buckets: []field.Element{field.Fp32.FromUint64(1)}}
	enc, err := want.MarshalCBOR()
	require.NoError(t, err)

	_, err = UnmarshalResultCBOR(field.Fp61, enc)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{PerUserCreditCap: 8, MaxBreakdownKey: 3}
	assert.NoError(t, cfg.Validate())

	bad := Config{PerUserCreditCap: 7, MaxBreakdownKey: 3}
	assert.Error(t, bad.Validate())

	noBreakdown := Config{PerUserCreditCap: 8, MaxBreakdownKey: 0}
	assert.Error(t, noBreakdown.Validate())

	badEpsilon := Config{PerUserCreditCap: 8, MaxBreakdownKey: 3, WithDP: true, Epsilon: 0}
	assert.Error(t, badEpsilon.Validate())
}

func TestPrepareAdvancesState(t *testing.T) {
	q := New(Config{PerUserCreditCap: 8, MaxBreakdownKey: 3})
	require.NoError(t, q.Prepare())
	assert.Equal(t, Preparing, q.State)
}

func TestPrepareFromWrongStateFails(t *testing.T) {
	q := New(Config{PerUserCreditCap: 8, MaxBreakdownKey: 3})
	require.NoError(t, q.Prepare())
	assert.Error(t, q.Prepare())
}

func TestPrepareInvalidConfigFails(t *testing.T) {
	q := New(Config{PerUserCreditCap: 3, MaxBreakdownKey: 3})
	assert.Error(t, q.Prepare())
	assert.Equal(t, Failed, q.State)
}
