package core

import "github.com/pkg/errors"

// ErrorKind tags an Error with its classification so that callers can branch
// on the failure class instead of matching message substrings.
type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindValidation  ErrorKind = "validation"
	KindNetwork     ErrorKind = "network"
	KindRateLimited ErrorKind = "rate_limited"
	KindInternal    ErrorKind = "internal"
)

// Error is the tagged error contract returned by data collaborators
// (repositories, caches) and by core services.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error // optional underlying cause
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func WrapError(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient and worth retrying.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindRateLimited
}

// KindOf returns the ErrorKind of err, unwrapping pkg/errors wrapping.
// Unclassified errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
