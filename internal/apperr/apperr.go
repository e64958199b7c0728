// Package apperr defines the error taxonomy shared by all core operations.
// Every failure a handler can surface maps to exactly one Kind, which in turn
// maps to a stable HTTP status code and machine-readable string.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	// KindValidation covers malformed or missing input (400).
	KindValidation Kind = "validation"
	// KindNotFound covers absent referenced entities (404).
	KindNotFound Kind = "not_found"
	// KindConflict covers state conflicts: coupon already used, illegal
	// transitions, negative stock, amount mismatch (409).
	KindConflict Kind = "conflict"
	// KindForbidden covers role and ownership check failures (403).
	KindForbidden Kind = "forbidden"
	// KindExternalIntegrity covers rejected external input such as an
	// invalid webhook signature (400, no mutation performed).
	KindExternalIntegrity Kind = "external_integrity"
)

// Error carries a Kind alongside the underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error from a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Wrap classifies an existing error. A nil err returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the Kind from err, or ok=false when err is unclassified.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
