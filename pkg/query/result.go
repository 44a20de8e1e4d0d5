package query

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/ipa-mpc/pkg/field"
)

// wireResult is Result's CBOR wire shape: buckets travel as their
// MarshalBinary encoding since field.Element is an interface and cbor
// cannot encode it directly, the same byte-oriented approach the teacher
// used for round.Message payloads.
type wireResult struct {
	Field   string   `cbor:"field"`
	Buckets [][]byte `cbor:"buckets"`
}

// MarshalCBOR encodes r for handoff to a coordination layer (an API
// response, a result store) once every party has revealed its bucket
// vector.
func (r *Result) MarshalCBOR() ([]byte, error) {
	w := wireResult{Buckets: make([][]byte, len(r.Buckets))}
	for i, b := range r.Buckets {
		w.Field = b.Name()
		enc, err := b.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("query: result: marshal bucket %d: %w", i, err)
		}
		w.Buckets[i] = enc
	}
	out, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("query: result: marshal cbor: %w", err)
	}
	return out, nil
}

// UnmarshalResultCBOR decodes a Result previously produced by
// Result.MarshalCBOR, reconstructing each bucket's field.Element via f.
func UnmarshalResultCBOR(f field.Field, data []byte) (*Result, error) {
	var w wireResult
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("query: result: unmarshal cbor: %w", err)
	}
	if w.Field != "" && w.Field != f.Name() {
		return nil, fmt.Errorf("query: result: encoded for field %q, got %q", w.Field, f.Name())
	}
	buckets := make([]field.Element, len(w.Buckets))
	for i, enc := range w.Buckets {
		e := f.Zero()
		if err := e.UnmarshalBinary(enc); err != nil {
			return nil, fmt.Errorf("query: result: unmarshal bucket %d: %w", i, err)
		}
		buckets[i] = e
	}
	return &Result{Buckets: buckets}, nil
}
