// Package step implements the hierarchical step-path naming scheme used
// to derive independent channels and PRSS streams per sub-protocol
// (spec.md section 4.3, "Context Tree"; design note: "model it as an
// immutable path value plus a flyweight interning table to avoid
// per-step allocations on hot paths").
package step

import (
	"strings"
	"sync"
)

// Path is an immutable, interned sequence of labels identifying one
// protocol sub-invocation. The zero value is the root path.
type Path struct {
	// joined is the fully-qualified "/"-delimited path string. Two Paths
	// with the same joined string are guaranteed to share the identical
	// interned string via the package-level table, so Paths can be
	// compared cheaply and used directly as map keys.
	joined string
}

var (
	internMu sync.Mutex
	interned = map[string]string{"": ""}
)

// intern is called concurrently whenever multiple parties narrow the same
// context tree from their own goroutines (see internal/test.World.Run), so
// the table needs its own lock rather than relying on a single-threaded
// caller.
func intern(s string) string {
	internMu.Lock()
	defer internMu.Unlock()
	if v, ok := interned[s]; ok {
		return v
	}
	interned[s] = s
	return s
}

// Root is the empty step path.
var Root = Path{}

// Narrow returns a child path with label appended, interning the result
// so repeated narrows with identical labels never allocate a fresh
// string after the first occurrence.
func (p Path) Narrow(label string) Path {
	joined := label
	if p.joined != "" {
		joined = p.joined + "/" + label
	}
	return Path{joined: intern(joined)}
}

// String returns the fully-qualified path.
func (p Path) String() string { return p.joined }

// Depth returns the number of labels in the path.
func (p Path) Depth() int {
	if p.joined == "" {
		return 0
	}
	return strings.Count(p.joined, "/") + 1
}

// Bytes returns the path as a byte slice suitable for domain-separating
// a hash or PRF input.
func (p Path) Bytes() []byte { return []byte(p.joined) }
