package engine

import (
	"errors"
	"fmt"
)

// ComposeErrorCode categorizes compose errors.
type ComposeErrorCode string

const (
	// ErrCodeOriginalMissing: a computed or extension view has no original.
	ErrCodeOriginalMissing ComposeErrorCode = "ORIGINAL_MISSING"

	// ErrCodeInvalidOriginal: the original's content does not parse.
	ErrCodeInvalidOriginal ComposeErrorCode = "INVALID_ORIGINAL"
)

// ComposeError aborts the composition of one group. In a batch the other
// groups still run and the error is recorded as a BatchFailure.
type ComposeError struct {
	Code ComposeErrorCode
	// View is the label of the view composition was asked for.
	View    string
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ComposeError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.View == "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s: compose %s: %s", e.Code, e.View, msg)
}

func (e *ComposeError) Unwrap() error { return e.Err }

// Is reports whether target is a ComposeError with the same code, so a bare
// &ComposeError{Code: ...} works as a sentinel for errors.Is.
func (e *ComposeError) Is(target error) bool {
	t, ok := target.(*ComposeError)
	return ok && t.Code == e.Code && t.View == "" && t.Message == "" && t.Err == nil
}

var (
	errOriginalMissing = &ComposeError{Code: ErrCodeOriginalMissing}
	errInvalidOriginal = &ComposeError{Code: ErrCodeInvalidOriginal}
)

// IsOriginalMissing reports whether err, or anything it wraps, is an
// ErrCodeOriginalMissing compose error.
func IsOriginalMissing(err error) bool {
	return errors.Is(err, errOriginalMissing)
}

// IsInvalidOriginal reports whether err wraps an ErrCodeInvalidOriginal
// compose error.
func IsInvalidOriginal(err error) bool {
	return errors.Is(err, errInvalidOriginal)
}
