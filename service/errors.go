package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure so the transport layer can map it.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindStatePrecondition ErrorKind = "state_precondition"
	KindValidation        ErrorKind = "validation"
	KindEligibility       ErrorKind = "eligibility"
	KindConflict          ErrorKind = "conflict"
	KindNotAvailable      ErrorKind = "not_available"
)

// Error is a classified service failure. Details lists the offending ids
// or names when there is more than one.
type Error struct {
	Kind    ErrorKind
	Message string
	Details []string
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// Is matches sentinel errors by kind, so errors.Is(err, ErrValidation)
// holds for every validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrStatePrecondition = &Error{Kind: KindStatePrecondition}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrEligibility       = &Error{Kind: KindEligibility}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrNotAvailable      = &Error{Kind: KindNotAvailable}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func invalid(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func wrongState(format string, args ...interface{}) *Error {
	return newError(KindStatePrecondition, format, args...)
}

// KindOf returns the kind of a service error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
