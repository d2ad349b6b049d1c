package docsite

import (
	"errors"
	"fmt"
)

// Error is a stable, code-carrying error returned by docsite packages.
//
// Callers match on Code with errors.As or on the sentinel values with errors.Is.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewError returns an *Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError returns an *Error with the given code and message wrapping err.
func WrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in the chain, or ErrorCodeInternal.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var docErr *Error
	if errors.As(err, &docErr) {
		return docErr.Code
	}
	return ErrorCodeInternal
}
