// Package prop describes video source modes and the constraints used to pick
// the mode closest to a requested capture format.
package prop

import (
	"fmt"

	"github.com/camrec/camrec/pkg/frame"
)

// Media is one mode a source can deliver.
type Media struct {
	DeviceID string
	Video
}

// Video represents a video's properties
type Video struct {
	Width, Height int
	FrameRate     float32
	FrameFormat   frame.Format
}

func (v Video) String() string {
	return fmt.Sprintf("%dx%d@%.0f %s", v.Width, v.Height, v.FrameRate, v.FrameFormat)
}

// MediaConstraints is a set of constraints a Media is compared with.
// Nil constraints are ignored.
type MediaConstraints struct {
	DeviceID StringConstraint
	VideoConstraints
}

// VideoConstraints constrains each field of Video.
type VideoConstraints struct {
	Width, Height IntConstraint
	FrameRate     FloatConstraint
	FrameFormat   FrameFormatConstraint
}

// FitnessDistance returns the sum of the normalized distances between the
// constraints and the given Media, and false when an exact or ranged
// constraint can't be satisfied.
// Reference: https://w3c.github.io/mediacapture-main/#dfn-fitness-distance
func (c *MediaConstraints) FitnessDistance(o Media) (float64, bool) {
	var cmps comparisons
	if c.DeviceID != nil {
		cmps = append(cmps, func() (float64, bool) { return c.DeviceID.Compare(o.DeviceID) })
	}
	if c.Width != nil {
		cmps = append(cmps, func() (float64, bool) { return c.Width.Compare(o.Width) })
	}
	if c.Height != nil {
		cmps = append(cmps, func() (float64, bool) { return c.Height.Compare(o.Height) })
	}
	if c.FrameFormat != nil {
		cmps = append(cmps, func() (float64, bool) { return c.FrameFormat.Compare(o.FrameFormat) })
	}
	// A source that reports FrameRate 0 can run at any rate.
	if c.FrameRate != nil && o.FrameRate > 0 {
		cmps = append(cmps, func() (float64, bool) { return c.FrameRate.Compare(o.FrameRate) })
	}
	return cmps.fitnessDistance()
}

// Merge fills the zero fields of p with the ideal or exact values of c.
func (p *Media) Merge(c MediaConstraints) {
	if v, ok := value(c.Width); ok && p.Width == 0 {
		p.Width = v
	}
	if v, ok := value(c.Height); ok && p.Height == 0 {
		p.Height = v
	}
	if c.FrameRate != nil && p.FrameRate == 0 {
		if v, ok := c.FrameRate.Value(); ok {
			p.FrameRate = v
		}
	}
	if c.FrameFormat != nil && p.FrameFormat == "" {
		if v, ok := c.FrameFormat.Value(); ok {
			p.FrameFormat = v
		}
	}
}

func value(c IntConstraint) (int, bool) {
	if c == nil {
		return 0, false
	}
	return c.Value()
}

type comparisons []func() (float64, bool)

func (c comparisons) fitnessDistance() (float64, bool) {
	var dist float64
	for _, cmp := range c {
		d, ok := cmp()
		if !ok {
			return 0, false
		}
		dist += d
	}
	return dist, true
}
