package validator

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/ipaerr"
	"github.com/luxfi/ipa-mpc/pkg/prss"
	"github.com/luxfi/ipa-mpc/pkg/share"
	"github.com/luxfi/ipa-mpc/pkg/step"
)

// reveal is a toy RevealFunc for these unit tests: it treats a single
// party's two local share components as if they were the whole secret,
// since the point here is to exercise Validator's accumulate-then-check
// arithmetic in isolation, not a real 3-party network (see RevealFunc's
// doc comment on why Validator never imports the gadget/context layer
// that would provide a genuine multi-party reveal).
func reveal(_ context.Context, s share.Replicated) (field.Element, error) {
	return s.Left.Add(s.Right), nil
}

// splitValue returns a Replicated share whose Left+Right reconstructs to
// v, split arbitrarily so tests aren't tempted to read meaning into the
// split itself.
func splitValue(f field.Field, v field.Element) share.Replicated {
	return share.New(v, f.Zero())
}

var _ = Describe("Validator", func() {
	f := field.Fp61
	endpoint, err := prss.NewEndpoint([]byte("left-seed-left-seed-left-seed12"), []byte("right-seed-right-seed-right-sd1"))
	if err != nil {
		panic(err)
	}

	newValidator := func(rValue field.Element) *Validator {
		return New(f, splitValue(f, rValue), endpoint, step.Root.Narrow("validator-test"))
	}

	It("accepts a batch of absorbed shares consistent with r", func() {
		rValue := f.FromUint64(7)
		v := newValidator(rValue)

		for _, zv := range []uint64{3, 11, 42} {
			z := splitValue(f, f.FromUint64(zv))
			rz := splitValue(f, rValue.Mul(f.FromUint64(zv)))
			Expect(v.Absorb(z, rz)).To(Succeed())
		}

		Expect(v.Validate(context.Background(), reveal)).To(Succeed())
	})

	It("rejects a batch where one absorbed share disagrees with r*z", func() {
		rValue := f.FromUint64(7)
		v := newValidator(rValue)

		z := splitValue(f, f.FromUint64(5))
		tamperedRZ := splitValue(f, f.FromUint64(999)) // should be rValue*5
		Expect(v.Absorb(z, tamperedRZ)).To(Succeed())

		err := v.Validate(context.Background(), reveal)
		Expect(err).To(HaveOccurred())
		Expect(ipaerr.Is(err, ipaerr.MaliciousSecurityCheckFailed)).To(BeTrue())
	})

	It("derives identical accumulator state from the same PRSS path and records", func() {
		rValue := f.FromUint64(7)
		v1 := newValidator(rValue)
		v2 := newValidator(rValue)

		z := splitValue(f, f.FromUint64(5))
		rz := splitValue(f, rValue.Mul(f.FromUint64(5)))
		Expect(v1.Absorb(z, rz)).To(Succeed())
		Expect(v1.Absorb(z, rz)).To(Succeed())

		Expect(v2.Absorb(z, rz)).To(Succeed())
		Expect(v2.Absorb(z, rz)).To(Succeed())

		// Both validators absorbed the same two records starting from the
		// same PRSS path, so they accumulate identical state -- confirming
		// Absorb is a deterministic function of path+count, not of wall-clock
		// randomness, which is what lets Validate be checked independently
		// by every party narrowing the same sub-protocol.
		Expect(v1.u.Left.Equal(v2.u.Left)).To(BeTrue())
		Expect(v1.u.Right.Equal(v2.u.Right)).To(BeTrue())
		Expect(v1.w.Left.Equal(v2.w.Left)).To(BeTrue())
		Expect(v1.w.Right.Equal(v2.w.Right)).To(BeTrue())
	})
})
