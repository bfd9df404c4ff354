// Package driver keeps track of the video sources available on a host and of
// the lifecycle state of each of them.
package driver

import (
	"github.com/camrec/camrec/pkg/io/video"
	"github.com/camrec/camrec/pkg/prop"
)

// OpenCloser is a hardware handle that can be opened and released.
type OpenCloser interface {
	Open() error
	Close() error
}

// Propertier lists the modes a source supports. It is only meaningful after
// the source has been opened.
type Propertier interface {
	Properties() []prop.Media
}

// Adapter is the interface a source implementation provides.
type Adapter interface {
	OpenCloser
	Propertier
}

// VideoRecorder starts delivering frames in the given mode.
type VideoRecorder interface {
	VideoRecord(p prop.Media) (video.Reader, error)
}

// Info describes a registered source.
type Info struct {
	Label      string
	DeviceType DeviceType
	Priority   Priority
	// Name is the location of the source, e.g. a device node path.
	Name string
}

// Driver is an Adapter wrapped with an identity and a validated state.
type Driver interface {
	Adapter
	ID() string
	Info() Info
	Status() State
}
