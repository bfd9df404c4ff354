package camrec

import (
	"fmt"
	"sort"
)

// CaptureFormat is the resolution and frame rate requested for a recording.
type CaptureFormat struct {
	Width     int
	Height    int
	FrameRate int
}

func (f CaptureFormat) String() string {
	return fmt.Sprintf("%dx%d@%d", f.Width, f.Height, f.FrameRate)
}

// Resolution labels accepted by SelectFormat.
const (
	Resolution720p  = "720p"
	Resolution1080p = "1080p"
	Resolution4K    = "4K"

	// DefaultResolution is used for new controllers and unknown labels.
	DefaultResolution = Resolution1080p
)

var formats = map[string]CaptureFormat{
	Resolution720p:  {Width: 1280, Height: 720, FrameRate: 30},
	Resolution1080p: {Width: 1920, Height: 1080, FrameRate: 30},
	Resolution4K:    {Width: 3840, Height: 2160, FrameRate: 30},
}

// FormatFor maps a resolution label to its CaptureFormat. Unrecognized
// labels map to the 1080p format, and ok is false.
func FormatFor(label string) (f CaptureFormat, ok bool) {
	f, ok = formats[label]
	if !ok {
		f = formats[DefaultResolution]
	}
	return f, ok
}

// Resolutions returns the recognized labels ordered by pixel count.
func Resolutions() []string {
	labels := make([]string, 0, len(formats))
	for l := range formats {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := formats[labels[i]], formats[labels[j]]
		return a.Width*a.Height < b.Width*b.Height
	})
	return labels
}
