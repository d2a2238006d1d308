// Package errors defines the sentinel errors shared across the module and
// their mapping to wire-level codes for scoped error events.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// Client mistakes.
	ErrValidation   = fmt.Errorf("invalid event payload")
	ErrNotFound     = fmt.Errorf("resource not found")
	ErrUnauthorized = fmt.Errorf("unauthorized action")

	// Relationship guard violations.
	ErrAlreadyFriends   = fmt.Errorf("participants are already friends")
	ErrDuplicateRequest = fmt.Errorf("friend request already pending")
	ErrNoSuchRequest    = fmt.Errorf("no such friend request")
	ErrAlreadyBlocked   = fmt.Errorf("participant already blocked")
	ErrBlocked          = fmt.Errorf("participant has blocked the sender")

	// Infrastructure failure. Logged distinctly at the dispatcher boundary
	// since it indicates a store problem rather than a client mistake.
	ErrStore = fmt.Errorf("durable store failure")
)

// Code is the machine-readable error class carried by a scoped error event.
type Code string

const (
	CodeValidation   Code = "validation"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"
)

// ToCode classifies any error into its wire-level code.
// Unknown errors are treated as internal: the caller gets a generic
// failure and the detail stays in the server logs.
func ToCode(err error) Code {
	switch {
	case stderrors.Is(err, ErrValidation):
		return CodeValidation
	case stderrors.Is(err, ErrNotFound):
		return CodeNotFound
	case stderrors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case stderrors.Is(err, ErrAlreadyFriends),
		stderrors.Is(err, ErrDuplicateRequest),
		stderrors.Is(err, ErrNoSuchRequest),
		stderrors.Is(err, ErrAlreadyBlocked),
		stderrors.Is(err, ErrBlocked):
		return CodeConflict
	default:
		return CodeInternal
	}
}

// IsStore reports whether the error comes from the durable store rather
// than a client mistake.
func IsStore(err error) bool {
	return stderrors.Is(err, ErrStore)
}
