package prop

import (
	"fmt"
	"math"

	"github.com/camrec/camrec/pkg/frame"
)

// IntConstraint is an interface to represent integer value constraint.
type IntConstraint interface {
	Compare(int) (float64, bool)
	Value() (int, bool)
}

// Int prefers the closest value but accepts any.
type Int int

// Compare implements IntConstraint.
func (i Int) Compare(a int) (float64, bool) {
	if int(i) == a {
		return 0.0, true
	}
	return math.Abs(float64(a-int(i))) / math.Max(math.Abs(float64(a)), math.Abs(float64(i))), true
}

// Value implements IntConstraint.
func (i Int) Value() (int, bool) { return int(i), true }

func (i Int) String() string { return fmt.Sprintf("%d (ideal)", int(i)) }

// IntExact accepts only the given value.
type IntExact int

// Compare implements IntConstraint.
func (i IntExact) Compare(a int) (float64, bool) {
	if int(i) == a {
		return 0.0, true
	}
	return 1.0, false
}

// Value implements IntConstraint.
func (i IntExact) Value() (int, bool) { return int(i), true }

func (i IntExact) String() string { return fmt.Sprintf("%d (exact)", int(i)) }

// IntRanged accepts values in [Min, Max]. A zero bound is open.
// If Ideal is non-zero, values closer to it rank better.
type IntRanged struct {
	Min   int
	Max   int
	Ideal int
}

// Compare implements IntConstraint.
func (i IntRanged) Compare(a int) (float64, bool) {
	if i.Min != 0 && i.Min > a {
		return 1.0, false
	}
	if i.Max != 0 && i.Max < a {
		return 1.0, false
	}
	if i.Ideal == 0 {
		return 0.0, true
	}
	switch {
	case a == i.Ideal:
		return 0.0, true
	case a < i.Ideal:
		if i.Min == 0 {
			return 0.0, true
		}
		return float64(i.Ideal-a) / float64(i.Ideal-i.Min), true
	default:
		if i.Max == 0 {
			return 0.0, true
		}
		return float64(a-i.Ideal) / float64(i.Max-i.Ideal), true
	}
}

// Value implements IntConstraint.
func (IntRanged) Value() (int, bool) { return 0, false }

// FloatConstraint is an interface to represent float value constraint.
type FloatConstraint interface {
	Compare(float32) (float64, bool)
	Value() (float32, bool)
}

// Float prefers the closest value but accepts any.
type Float float32

// Compare implements FloatConstraint.
func (f Float) Compare(a float32) (float64, bool) {
	if float32(f) == a {
		return 0.0, true
	}
	return math.Abs(float64(a-float32(f))) / math.Max(math.Abs(float64(a)), math.Abs(float64(f))), true
}

// Value implements FloatConstraint.
func (f Float) Value() (float32, bool) { return float32(f), true }

func (f Float) String() string { return fmt.Sprintf("%.2f (ideal)", float32(f)) }

// FloatRanged accepts values in [Min, Max]. A zero bound is open.
type FloatRanged struct {
	Min float32
	Max float32
}

// Compare implements FloatConstraint.
func (f FloatRanged) Compare(a float32) (float64, bool) {
	if f.Min != 0 && f.Min > a {
		return 1.0, false
	}
	if f.Max != 0 && f.Max < a {
		return 1.0, false
	}
	return 0.0, true
}

// Value implements FloatConstraint.
func (FloatRanged) Value() (float32, bool) { return 0, false }

// FrameFormatConstraint is an interface to represent frame format constraint.
type FrameFormatConstraint interface {
	Compare(frame.Format) (float64, bool)
	Value() (frame.Format, bool)
}

// FrameFormat prefers the given format but accepts any.
type FrameFormat frame.Format

// Compare implements FrameFormatConstraint.
func (f FrameFormat) Compare(a frame.Format) (float64, bool) {
	if frame.Format(f) == a {
		return 0.0, true
	}
	return 1.0, true
}

// Value implements FrameFormatConstraint.
func (f FrameFormat) Value() (frame.Format, bool) { return frame.Format(f), true }

// FrameFormatOneOf accepts only the listed formats.
type FrameFormatOneOf []frame.Format

// Compare implements FrameFormatConstraint.
func (f FrameFormatOneOf) Compare(a frame.Format) (float64, bool) {
	for _, ff := range f {
		if ff == a {
			return 0.0, true
		}
	}
	return 1.0, false
}

// Value implements FrameFormatConstraint.
func (FrameFormatOneOf) Value() (frame.Format, bool) { return "", false }

// StringConstraint is an interface to represent string constraint.
type StringConstraint interface {
	Compare(string) (float64, bool)
	Value() (string, bool)
}

// StringExact accepts only the given string.
type StringExact string

// Compare implements StringConstraint.
func (s StringExact) Compare(a string) (float64, bool) {
	if string(s) == a {
		return 0.0, true
	}
	return 1.0, false
}

// Value implements StringConstraint.
func (s StringExact) Value() (string, bool) { return string(s), true }
