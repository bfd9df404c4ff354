package camrec

import "context"

// VideoFile is what a camera reports for a finished capture.
type VideoFile struct {
	Path string
	// Duration in seconds.
	Duration float64
	Size     int64
}

// CaptureCallbacks receive the outcome of one capture. A camera calls
// exactly one of them, once, for every successful RequestStart.
type CaptureCallbacks struct {
	OnFinished func(VideoFile)
	OnError    func(error)
}

// Camera is the capture hardware. Both requests return as soon as the
// request is issued. An error from RequestStart means no capture was
// started and no callback will follow.
type Camera interface {
	RequestStart(format CaptureFormat, cb CaptureCallbacks) error
	RequestStop() error
}

// Readier is implemented by cameras that can tell when their handle went
// stale, e.g. an unplugged device.
type Readier interface {
	Ready() error
}

// Permission is the host's camera permission.
type Permission interface {
	Status() PermissionStatus
	// Request asks the host for permission and returns the new status.
	Request(ctx context.Context) (PermissionStatus, error)
}

// MediaStore persists finished clips into a user visible library. Saving
// the same path more than once must be harmless.
type MediaStore interface {
	Save(ctx context.Context, path string) error
}
