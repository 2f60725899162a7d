// Package apperrors defines the error taxonomy shared by services and
// handlers. Services return these typed errors; the HTTP layer maps each
// kind to a status code without inspecting messages.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling.
type Kind int

const (
	// KindInternal covers unexpected failures; surfaced as an opaque 500.
	KindInternal Kind = iota
	// KindValidation covers malformed caller input.
	KindValidation
	// KindNotFound covers unknown cards, users and transfers.
	KindNotFound
	// KindBusiness covers domain rule violations (insufficient funds,
	// blocked card, ownership mismatch, duplicates).
	KindBusiness
	// KindLockTimeout covers bounded lock waits that expired; safe to retry.
	KindLockTimeout
	// KindCrypto covers encryption failures; treated as internal, never
	// retried automatically.
	KindCrypto
)

// Error carries a kind, a caller-safe message and an optional cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the classification of the error.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the caller-safe message without any wrapped cause.
func (e *Error) Message() string { return e.msg }

// Validation builds a caller-input error.
func Validation(msg string) error { return &Error{kind: KindValidation, msg: msg} }

// Validationf builds a formatted caller-input error.
func Validationf(format string, args ...interface{}) error {
	return &Error{kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a missing-resource error.
func NotFound(msg string) error { return &Error{kind: KindNotFound, msg: msg} }

// Business builds a domain rule violation with the specific reason.
func Business(msg string) error { return &Error{kind: KindBusiness, msg: msg} }

// LockTimeout builds a retryable lock-wait error.
func LockTimeout(msg string) error { return &Error{kind: KindLockTimeout, msg: msg} }

// Crypto wraps an encryption failure. The cause is kept for server-side
// logging only; callers see the generic message.
func Crypto(msg string, cause error) error {
	return &Error{kind: KindCrypto, msg: msg, err: cause}
}

// Internal wraps an unexpected failure.
func Internal(cause error) error {
	return &Error{kind: KindInternal, msg: "internal error", err: cause}
}

// KindOf extracts the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsBusiness reports whether err is a domain rule violation.
func IsBusiness(err error) bool { return KindOf(err) == KindBusiness }

// IsValidation reports whether err is a caller-input error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsLockTimeout reports whether err is a retryable lock-wait error.
func IsLockTimeout(err error) bool { return KindOf(err) == KindLockTimeout }
