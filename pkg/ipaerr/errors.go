// Package ipaerr enumerates the query-level error kinds from spec.md
// section 7 and their propagation semantics: a query either produces its
// full revealed result, or fails outright with one of these kinds.
package ipaerr

import "fmt"

// Kind is one of the error kinds named in spec.md section 7.
type Kind string

const (
	Io                           Kind = "Io"
	OutOfRange                   Kind = "OutOfRange"
	Duplicate                    Kind = "Duplicate"
	LengthMismatch               Kind = "LengthMismatch"
	Decrypt                      Kind = "Decrypt"
	MaliciousSecurityCheckFailed Kind = "MaliciousSecurityCheckFailed"
	InvalidConfig                Kind = "InvalidConfig"
	Internal                     Kind = "Internal"
)

// Error wraps an underlying cause with one of the fixed query error
// kinds, following the teacher's fmt.Errorf("%w", ...) wrapping idiom
// (see protocols/lss/config.Config.Validate and pkg/protocol/handler.go).
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds an Error of the given kind from a format string.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err itself is an *Error of the given kind. It does
// not unwrap err, so an *Error wrapped inside another error is not found.
func Is(err error, kind Kind) bool {
	var e *Error
	if ae, ok := err.(*Error); ok {
		e = ae
	} else {
		return false
	}
	return e.Kind == kind
}
