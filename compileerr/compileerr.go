// Package compileerr defines the fatal error kinds the compiler core can
// raise (spec §7). All compiler passes return errors of this shape; the
// driver (package compile) halts on the first one and returns no partial
// results (spec §6 "Error reporting").
package compileerr

import "fmt"

// Kind enumerates the fatal error kinds of spec §7.
type Kind string

const (
	UnresolvableLoopBound     Kind = "UnresolvableLoopBound"
	UnresolvableIndex         Kind = "UnresolvableIndex"
	NonIntegerIndex           Kind = "NonIntegerIndex"
	OverwriteData             Kind = "OverwriteData"
	PartialObservation        Kind = "PartialObservation"
	RepeatedAssignment        Kind = "RepeatedAssignment"
	LogicalStochasticConflict Kind = "LogicalStochasticConflict"
	UndefinedLinkFunction     Kind = "UndefinedLinkFunction"
	UndefinedDistribution     Kind = "UndefinedDistribution"
	UndefinedFunction         Kind = "UndefinedFunction"
	MultipleDistributionsFor  Kind = "MultipleDistributionsFor"
	CycleInDependencyGraph    Kind = "CycleInDependencyGraph"
	ShapeMismatch             Kind = "ShapeMismatch"
	UnsupportedExpression     Kind = "UnsupportedExpression"
)

// Error is the single error type every compiler pass returns. It carries the
// error Kind, a human-readable message, and the offending AST fragment
// (kept as a fmt.Stringer so this package need not import package ast).
type Error struct {
	Kind     Kind
	Message  string
	Fragment fmt.Stringer
	// Cause, if non-nil, is a wrapped lower-level error (e.g. from the
	// standard library), unwrapped via errors.Unwrap / errors.Is.
	Cause error
}

// New constructs an *Error of the given kind with a formatted message and no
// offending fragment.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At attaches an offending AST fragment to the error, for display in
// diagnostics.
func (e *Error) At(fragment fmt.Stringer) *Error {
	e.Fragment = fragment
	return e
}

// Wrap attaches a lower-level cause.
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Fragment != nil {
		msg += fmt.Sprintf(" (at %s)", e.Fragment)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap allows errors.Is/errors.As to see through to Cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, compileerr.New(Kind, ...)) style kind checks by
// comparing only the Kind field, matching the convention of comparing
// against a zero-valued sentinel of the same kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
