// Package dagerr defines the closed vocabulary of failure kinds surfaced by
// the graph evaluation engine.
package dagerr

import (
	"errors"
	"fmt"
)

// Type identifies one of the closed set of failure kinds a node or runner
// can surface to callers.
type Type string

// The closed taxonomy of failure kinds.
const (
	// MissingVariable: a variable node or direct variable dependency lacks a
	// binding at evaluation time.
	MissingVariable Type = "missing-variable"
	// NoSaveFunction: a save operation was requested on a node lacking a
	// save descriptor.
	NoSaveFunction Type = "no-save-function"
	// NoLoadFunction: a load operation was requested on a node lacking a
	// load descriptor.
	NoLoadFunction Type = "no-load-function"
	// SaveBeforeCompute: explicit save requested while the node has no
	// memoized value.
	SaveBeforeCompute Type = "save-before-compute"
	// LoadBindingsMismatch: explicit load found a sidecar whose bindings
	// disagree with the node's current bindings.
	LoadBindingsMismatch Type = "load-bindings-mismatch"
	// ForeachPathMustBeCallable: a foreach compute node was constructed with
	// a cache path function that resolves to the same path for every element
	// (e.g. fileio.StaticPath).
	ForeachPathMustBeCallable Type = "foreach-path-must-be-callable"
	// SaveFailed wraps an exception from a user-supplied save function.
	SaveFailed Type = "save-failed"
	// LoadFailed wraps an exception from a user-supplied load function,
	// other than file-not-found.
	LoadFailed Type = "load-failed"
)

// Error is the concrete error type returned for every failure kind above.
type Error struct {
	Type Type
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dagma: %s: %s: %v", e.Type, e.Msg, e.Err)
	}
	return fmt.Sprintf("dagma: %s: %s", e.Type, e.Msg)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(t Type, msg string) *Error {
	return &Error{Type: t, Msg: msg}
}

// Newf builds an Error with a formatted message.
func Newf(t Type, format string, args ...any) *Error {
	return &Error{Type: t, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that wraps a lower-level cause (e.g. a user
// save/load function's own error).
func Wrap(t Type, msg string, cause error) *Error {
	return &Error{Type: t, Msg: msg, Err: cause}
}

// Is reports whether err is a *Error of the given type.
func Is(err error, t Type) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}
