package camrec

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Start when there is no usable camera or the
	// camera permission has not been granted.
	ErrNotReady = errors.New("camrec: camera not ready")
	// ErrHardwareStart reports that a capture could not be started or failed
	// while running.
	ErrHardwareStart = errors.New("camrec: capture failed")
	// ErrHardwareStop reports that a capture failed while stopping.
	ErrHardwareStop = errors.New("camrec: stopping capture failed")
	// ErrPersistence reports that a finished clip could not be saved.
	ErrPersistence = errors.New("camrec: saving clip failed")
	// ErrRecording is returned when the format is changed during a capture.
	ErrRecording = errors.New("camrec: recording in progress")
)

// RecordingError is a failure reported by the Controller. It matches both
// its Kind and its cause with errors.Is.
type RecordingError struct {
	Kind error
	Err  error
}

func newError(kind, err error) *RecordingError {
	return &RecordingError{Kind: kind, Err: err}
}

func (e *RecordingError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *RecordingError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
