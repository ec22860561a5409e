// Package errors provides domain-specific error types for sersniff.
//
// These types carry structured context (operation, endpoint, field) that
// helps callers decide how to handle failures and provides better
// diagnostics than plain string wrapping.  Every structured type matches
// one of the taxonomy sentinels through errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrReadFailed       = errors.New("read failed")
	ErrWriteFailed      = errors.New("write failed")
	ErrValidation       = errors.New("validation failed")
	ErrHandleClosed     = errors.New("handle is closed")
	ErrInvalidState     = errors.New("invalid session state")
)

// Port operations recorded in PortError.Op.
const (
	OpOpen  = "open"
	OpPoll  = "poll"
	OpRead  = "read"
	OpWrite = "write"
	OpClose = "close"
)

// ── Structured error types ───────────────────────────────────────────

// PortError represents a failure of an operation on a serial endpoint.
type PortError struct {
	Op       string // one of the Op* constants
	Endpoint string // device path or port name
	Err      error  // underlying error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *PortError) Unwrap() error { return e.Err }

// Is maps the operation onto the error taxonomy so callers can test for
// ErrConnectionFailed, ErrReadFailed or ErrWriteFailed without caring
// about the concrete type.
func (e *PortError) Is(target error) bool {
	switch target {
	case ErrConnectionFailed:
		return e.Op == OpOpen
	case ErrReadFailed:
		return e.Op == OpPoll || e.Op == OpRead
	case ErrWriteFailed:
		return e.Op == OpWrite
	}
	return false
}

// ValidationError represents caller-supplied input rejected before any
// resource was allocated.
type ValidationError struct {
	Field   string      // offending field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ValidationError) Error() string {
	msg := "invalid " + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf(" %v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a PortError.  A nil err yields nil so call sites can wrap
// unconditionally.
func Wrap(op, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return &PortError{Op: op, Endpoint: endpoint, Err: err}
}

// Invalid creates a ValidationError.
func Invalid(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ── Classification helpers ───────────────────────────────────────────

// IsConnectionFailed reports whether err came from opening an endpoint.
func IsConnectionFailed(err error) bool { return errors.Is(err, ErrConnectionFailed) }

// IsValidation reports whether err is a rejected input.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsIOFailure reports whether err is a steady-state read or write failure.
func IsIOFailure(err error) bool {
	return errors.Is(err, ErrReadFailed) || errors.Is(err, ErrWriteFailed)
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
