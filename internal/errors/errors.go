// Package errors holds the sentinel errors every layer wraps. Handlers and
// workers never inspect concrete error types; they classify with KindOf.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller is outside the security boundary of the resource.
	// Tenant isolation violations wrap this error.
	ErrForbidden = errors.New("forbidden")

	// ErrIntegrity indicates stored data failed an integrity check (tag mismatch,
	// missing key version). It must never be retried.
	ErrIntegrity = errors.New("integrity failure")

	// ErrUnavailable indicates a transient condition that is safe to retry.
	ErrUnavailable = errors.New("unavailable")

	// ErrInternal indicates a fatal fault (misconfiguration, corrupted key material).
	ErrInternal = errors.New("internal error")
)

// Kind is the coarse class of an error chain.
type Kind string

const (
	KindForbidden    Kind = "forbidden"
	KindIntegrity    Kind = "integrity"
	KindUnavailable  Kind = "unavailable"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Order matters: an isolation failure that also wraps ErrNotFound must still
// classify as forbidden.
var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrForbidden, KindForbidden},
	{ErrIntegrity, KindIntegrity},
	{ErrUnavailable, KindUnavailable},
	{ErrNotFound, KindNotFound},
	{ErrConflict, KindConflict},
	{ErrInvalidInput, KindInvalidInput},
	{ErrUnauthorized, KindUnauthorized},
}

// KindOf classifies err. Errors outside the sentinel tree, including
// ErrInternal, are KindInternal. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable reports whether err is transient.
func Retryable(err error) bool {
	return KindOf(err) == KindUnavailable
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is like Wrap but formats the context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
