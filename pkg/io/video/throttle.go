package video

import (
	"image"
	"time"
)

// Throttle returns video throttling transform.
// This transform converts the incoming frames to the given framerate in fps.
// Frames arriving faster than rate are dropped. When a source is slower,
// each frame is repeated for the time slots it missed, so the number of
// frames read matches the wall-clock time at rate.
func Throttle(rate float32) TransformFunc {
	return func(r Reader) Reader {
		interval := time.Duration(float64(time.Second) / float64(rate))
		var (
			start  time.Time
			next   int64
			repeat int64
			last   image.Image
		)
		return ReaderFunc(func() (image.Image, error) {
			if repeat > 0 {
				repeat--
				return last, nil
			}
			for {
				img, err := r.Read()
				if err != nil {
					return nil, err
				}
				now := time.Now()
				if start.IsZero() {
					start = now
				}
				slot := int64(now.Sub(start) / interval)
				if slot < next {
					continue
				}
				// The frame is only held until the next source read, which
				// may reuse its buffer.
				repeat = slot - next
				next = slot + 1
				last = img
				return img, nil
			}
		})
	}
}
