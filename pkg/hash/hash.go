// Package hash provides domain-separated keyed hashing built on BLAKE3,
// used by PRSS to hash (step path, record) indices and evaluate its keyed
// PRF, by curve.HashToScalar, and to seed the shuffle's permutation
// stream. Mirrors the teacher's pkg/hash.New()/WriteAny/Sum
// accumulator idiom.
package hash

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Size is the output width in bytes.
const Size = 32

// State is a running hash accumulator.
type State struct {
	h *blake3.Hasher
}

// New starts a fresh accumulator.
func New() *State {
	return &State{h: blake3.New()}
}

// NewKeyed starts an accumulator keyed with a 32-byte key, used to derive
// independent PRF streams per ordered party pair in PRSS.
func NewKeyed(key [32]byte) (*State, error) {
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		return nil, err
	}
	return &State{h: h}, nil
}

// BytesWithDomain tags a byte slice with a domain label before hashing,
// so structurally different inputs never collide.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteAny absorbs v into the running hash. Supported types: []byte,
// string, uint64, *BytesWithDomain.
func (s *State) WriteAny(v interface{}) error {
	switch x := v.(type) {
	case []byte:
		_, err := s.h.Write(x)
		return err
	case string:
		_, err := s.h.Write([]byte(x))
		return err
	case uint64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], x)
		_, err := s.h.Write(buf[:])
		return err
	case *BytesWithDomain:
		if _, err := s.h.Write([]byte(x.TheDomain)); err != nil {
			return err
		}
		_, err := s.h.Write(x.Bytes)
		return err
	default:
		panic("hash: unsupported type passed to WriteAny")
	}
}

// Sum finalizes the accumulator into a fixed-width digest. The
// accumulator remains usable afterwards (BLAKE3 supports repeated
// finalization without invalidating further writes).
func (s *State) Sum() [Size]byte {
	var out [Size]byte
	digest := s.h.Digest()
	_, _ = digest.Read(out[:])
	return out
}

// SumBytes returns the digest as a freshly allocated slice.
func (s *State) SumBytes() []byte {
	out := s.Sum()
	return out[:]
}
