// Package recordid defines the monotonic per-channel record index used to
// order messages within a step (spec.md section 3, "RecordId").
package recordid

import "fmt"

// ID is a 32-bit monotonic index within one channel. Within a channel,
// each ID is sent at most once and received at most once.
type ID uint32

func (r ID) String() string { return fmt.Sprintf("record(%d)", uint32(r)) }

// Range is a half-open interval [Start, End) of record IDs.
type Range struct {
	Start, End ID
}

// Contains reports whether id falls within the range.
func (r Range) Contains(id ID) bool { return id >= r.Start && id < r.End }
