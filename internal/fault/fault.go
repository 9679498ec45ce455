// Package fault defines the tagged error type shared by every layer of the
// application. Callers branch on an error's Kind instead of matching
// message text, which keeps retry classification and HTTP mapping honest
// when driver messages change between versions.
package fault

import (
	"errors"
	"fmt"
)

// Kind partitions failures into the categories the rest of the system
// reacts to differently.
type Kind int

const (
	// KindUnknown covers errors produced outside this module.
	KindUnknown Kind = iota
	// KindConfiguration marks invalid deployment input. Fatal at startup,
	// never retried.
	KindConfiguration
	// KindConnectivity marks transient transport failures. Retried by the
	// resilience layer, surfaced only after attempts are exhausted.
	KindConnectivity
	// KindAuthentication marks credential and token failures. Never retried.
	KindAuthentication
	// KindValidation marks caller input rejected before any write.
	KindValidation
	// KindPersistence marks a write that failed mid-transaction. Always
	// rolled back, never silently retried.
	KindPersistence
)

// String returns the lowercase name used in logs and error text.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnectivity:
		return "connectivity"
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a kinded error with an optional wrapped cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.err }

// Kind reports the error's category.
func (e *Error) Kind() Kind { return e.kind }

// New builds a kinded error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf builds a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing error. A nil cause
// yields nil so call sites can wrap return values unconditionally.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf extracts the Kind from an error chain, KindUnknown when no
// *Error is present.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return KindUnknown
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
