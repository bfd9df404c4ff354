// Package availability classifies errors that mean a source can't be used
// right now, as opposed to errors in the data it delivered.
package availability

import (
	"errors"
)

var (
	ErrUnimplemented = NewError("not implemented")
	ErrBusy          = NewError("device or resource busy")
	ErrNoDevice      = NewError("no such device")
)

type errorString struct {
	s string
}

// NewError creates an availability error.
func NewError(text string) error {
	return &errorString{text}
}

// IsError reports whether err, or any error it wraps, is an availability error.
func IsError(err error) bool {
	var target *errorString
	return errors.As(err, &target)
}

func (e *errorString) Error() string {
	return e.s
}
