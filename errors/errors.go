// Package errors provides error handling for fedlens.
//
// It re-exports github.com/cockroachdb/errors so every failure carries a
// stack trace and optional user hints, and it defines the sentinel errors
// raised by the lens core and the repository layer.
//
// Lens failures are local and synchronous. Wrap a sentinel to add context
// and test for it with Is:
//
//	if errors.Is(err, errors.ErrEmptyPosition) {
//	    // nothing at slot 0
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	// Mark makes Is(err, reference) hold without changing the message
	Mark = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Lens sentinels. Lenses wrap these with the lens kind and the offending
// input; callers test with Is.
var (
	// ErrNotImplemented is returned by a lens operation its kind cannot support
	// (e.g. Create on a selector-based lens).
	ErrNotImplemented = New("operation not implemented by lens")

	// ErrEmptyPosition is returned when a positional lens reads an empty sequence.
	ErrEmptyPosition = New("empty position")

	// ErrNodeNotFound is returned when a document lens finds no matching node.
	ErrNodeNotFound = New("node not found")

	// ErrUnexpectedAttribute is returned when an aggregate put or create is given
	// a key that has no declared lens.
	ErrUnexpectedAttribute = New("unexpected attribute")

	// ErrReservedAttributeName is returned when declaring an attribute whose name
	// collides with the resource identifier.
	ErrReservedAttributeName = New("reserved attribute name")

	// ErrTypeMismatch is returned when a lens receives a source or value of a
	// type it does not operate on.
	ErrTypeMismatch = New("type mismatch")
)

// Repository sentinels
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates the resource changed since it was read
	ErrConflict = New("resource conflict")

	// ErrServiceUnavailable indicates the repository could not be reached
	ErrServiceUnavailable = New("service unavailable")
)

// IsAbsent reports whether err signals structural absence at get time
// (an empty sequence or a missing node) rather than a real failure.
func IsAbsent(err error) bool {
	return err != nil && IsAny(err, ErrEmptyPosition, ErrNodeNotFound)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsConflictError checks if an error is or wraps ErrConflict.
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidRequest, format, args...)
}

// NotImplementedf wraps ErrNotImplemented with the lens and operation that lack support.
func NotImplementedf(format string, args ...interface{}) error {
	return Wrapf(ErrNotImplemented, format, args...)
}

// TypeMismatchf wraps ErrTypeMismatch describing what was expected and what arrived.
func TypeMismatchf(format string, args ...interface{}) error {
	return Wrapf(ErrTypeMismatch, format, args...)
}
