// Package errs defines the error kinds shared by the stores, the workflow
// and the HTTP layer. Callers test kinds with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrIncompleteDraft = errors.New("incomplete draft")
	ErrStorage         = errors.New("storage error")
	ErrDuplicate       = errors.New("duplicate record")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
)

// Error is a kinded error. Missing is only set for ErrIncompleteDraft.
type Error struct {
	Kind    error
	Msg     string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return newf(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(ErrNotFound, format, args...)
}

func InvalidState(format string, args ...any) error {
	return newf(ErrInvalidState, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newf(ErrForbidden, format, args...)
}

func Duplicate(format string, args ...any) error {
	return newf(ErrDuplicate, format, args...)
}

// Storage wraps a failure of the underlying persistence.
func Storage(err error, format string, args ...any) error {
	return &Error{Kind: ErrStorage, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Incomplete reports a submission blocked by the listed sections.
func Incomplete(missing []string) error {
	return &Error{
		Kind:    ErrIncompleteDraft,
		Msg:     "report is incomplete, missing sections: " + strings.Join(missing, ", "),
		Missing: missing,
	}
}

// Missing returns the incomplete sections carried by err, if any.
func Missing(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Missing
	}
	return nil
}
