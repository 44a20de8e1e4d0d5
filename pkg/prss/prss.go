// Package prss implements Pseudo-Random Secret Sharing (spec.md section
// 4.1): a correlated-randomness oracle where each ordered pair of
// parties shares a PRF key, and evaluating the PRF at a hierarchical
// index yields a pair of field elements that pairwise cancel across the
// three parties without any communication.
//
// Key derivation follows the teacher's reliance on golang.org/x/crypto
// for keyed primitives layered over stdlib crypto/*: pairwise pre-shared
// seeds are stretched with HKDF, and the PRF itself is a keyed BLAKE3
// hash of the domain-separated (step path, record id) index, per
// spec.md's "e.g. AES-based" implementation note generalized to the
// corpus's one keyed-hash primitive.
package prss

import (
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/ipa-mpc/pkg/field"
	"github.com/luxfi/ipa-mpc/pkg/hash"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/step"
)

// Endpoint is one party's view of the PRSS oracle: the two keys it
// shares with its ring neighbors.
type Endpoint struct {
	keyLeft, keyRight [32]byte
}

// NewEndpoint derives an Endpoint's pairwise keys from two pre-shared
// seeds (one per ring neighbor) via HKDF-SHA256, so raw seed material
// never touches the PRF directly. Both directions use the same HKDF
// label, so the key a party derives with its left neighbor equals the key
// that neighbor derives with its right neighbor.
func NewEndpoint(seedWithLeft, seedWithRight []byte) (*Endpoint, error) {
	kl, err := stretch(seedWithLeft, "prss-pair")
	if err != nil {
		return nil, err
	}
	kr, err := stretch(seedWithRight, "prss-pair")
	if err != nil {
		return nil, err
	}
	return &Endpoint{keyLeft: kl, keyRight: kr}, nil
}

func stretch(seed []byte, info string) ([32]byte, error) {
	var out [32]byte
	r := hkdf.New(newSHA256, seed, nil, []byte(info))
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, fmt.Errorf("prss: hkdf: %w", err)
	}
	return out, nil
}

// Generate evaluates the PRF at the index derived from (path, record),
// domain-separating on the full step path as required so that narrowing
// produces an independent randomness stream, and returns (left, right)
// field elements.
func (e *Endpoint) Generate(f field.Field, path step.Path, record recordid.ID) (left, right field.Element, err error) {
	idx := indexBytes(path, record)
	left, err = prf(f, e.keyLeft, idx)
	if err != nil {
		return nil, nil, err
	}
	right, err = prf(f, e.keyRight, idx)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// Zero generates a zero-sharing triple component (rL, rR) suitable for
// masking in multiplication/reshare; it is simply Generate under another
// name, kept distinct because callers read more naturally invoking
// "generate a zero share" than "generate fields" at a mask-only call site.
func (e *Endpoint) Zero(f field.Field, path step.Path, record recordid.ID) (left, right field.Element, err error) {
	return e.Generate(f, path, record)
}

// PairwiseSeed returns 32 bytes of randomness agreed with exactly one
// ring neighbor (the left one if left is true, else the right one),
// evaluated at (path, record). Unlike Generate/Zero, this is not reduced
// into a field element: it is meant to seed a local PRNG, as the oblivious
// shuffle protocol does to derive a permutation known only to one pair of
// parties (spec.md section 4.5, "Shuffle").
func (e *Endpoint) PairwiseSeed(left bool, path step.Path, record recordid.ID) ([32]byte, error) {
	idx := indexBytes(path, record)
	key := e.keyRight
	if left {
		key = e.keyLeft
	}
	h, err := hash.NewKeyed(key)
	if err != nil {
		return [32]byte{}, fmt.Errorf("prss: pairwise seed: %w", err)
	}
	if err := h.WriteAny(idx); err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], h.SumBytes())
	return out, nil
}

func indexBytes(path step.Path, record recordid.ID) []byte {
	h := hash.New()
	_ = h.WriteAny(path.Bytes())
	_ = h.WriteAny(uint64(record))
	return h.SumBytes()
}

func prf(f field.Field, key [32]byte, input []byte) (field.Element, error) {
	h, err := hash.NewKeyed(key)
	if err != nil {
		return nil, fmt.Errorf("prss: keyed hash: %w", err)
	}
	if err := h.WriteAny(input); err != nil {
		return nil, err
	}
	digest := h.SumBytes()
	// Fold the 32-byte digest into 64 bits by XORing its 8-byte words and
	// reduce that through FromUint64. For a field wider than 64 bits (the
	// curve scalar field) the output is therefore always below 2^64.
	var v uint64
	for i, b := range digest {
		v ^= uint64(b) << uint((8*i)%64)
	}
	return f.FromUint64(v), nil
}
