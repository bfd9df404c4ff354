// Package videotest provides a synthetic color bar source. Importing it
// registers one instance with the driver manager.
package videotest

import (
	"context"
	"image"
	"io"
	"math/rand"
	"time"

	"github.com/camrec/camrec/pkg/driver"
	"github.com/camrec/camrec/pkg/frame"
	"github.com/camrec/camrec/pkg/io/video"
	"github.com/camrec/camrec/pkg/prop"
)

func init() {
	driver.GetManager().Register(
		New(),
		driver.Info{Label: "VideoTest", DeviceType: driver.Camera, Priority: driver.PriorityLow},
	)
}

// Source produces color bars with a noise patch at the requested size.
type Source struct {
	// MaxFrames ends the stream with io.EOF after that many frames. Zero
	// means unlimited.
	MaxFrames int
	// Modes overrides the advertised properties.
	Modes []prop.Media

	closed <-chan struct{}
	cancel func()
	tick   *time.Ticker
}

// New returns a Source advertising the common 16:9 modes at 30 fps.
func New() *Source {
	return &Source{}
}

func (s *Source) Open() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.closed = ctx.Done()
	s.cancel = cancel
	return nil
}

func (s *Source) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.tick != nil {
		s.tick.Stop()
	}
	return nil
}

func (s *Source) Properties() []prop.Media {
	if s.Modes != nil {
		return append([]prop.Media(nil), s.Modes...)
	}
	sizes := [][2]int{{640, 480}, {1280, 720}, {1920, 1080}, {3840, 2160}}
	props := make([]prop.Media, 0, len(sizes))
	for _, sz := range sizes {
		props = append(props, prop.Media{Video: prop.Video{
			Width:       sz[0],
			Height:      sz[1],
			FrameRate:   30,
			FrameFormat: frame.FormatI420,
		}})
	}
	return props
}

var colors = [][3]byte{
	{235, 128, 128},
	{210, 16, 146},
	{170, 166, 16},
	{145, 54, 34},
	{107, 202, 222},
	{82, 90, 240},
	{41, 240, 110},
}

func (s *Source) VideoRecord(p prop.Media) (video.Reader, error) {
	if p.FrameRate == 0 {
		p.FrameRate = 30
	}
	if p.Width <= 0 || p.Height <= 0 {
		p.Width, p.Height = 640, 480
	}

	base := image.NewYCbCr(image.Rect(0, 0, p.Width, p.Height), image.YCbCrSubsampleRatio420)
	hColorBarEnd := p.Height * 3 / 4
	wGradationEnd := p.Width * 5 / 7
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			yi, ci := base.YOffset(x, y), base.COffset(x, y)
			if y < hColorBarEnd {
				c := colors[x*len(colors)/p.Width]
				base.Y[yi] = uint8(uint16(c[0]) * 75 / 100)
				base.Cb[ci], base.Cr[ci] = c[1], c[2]
				continue
			}
			if x < wGradationEnd {
				base.Y[yi] = uint8(x * 255 / wGradationEnd)
			}
			base.Cb[ci], base.Cr[ci] = 128, 128
		}
	}

	img := image.NewYCbCr(base.Rect, base.SubsampleRatio)
	random := rand.New(rand.NewSource(0))
	tick := time.NewTicker(time.Duration(float32(time.Second) / p.FrameRate))
	s.tick = tick
	closed := s.closed
	var n int

	r := video.ReaderFunc(func() (image.Image, error) {
		if s.MaxFrames > 0 && n >= s.MaxFrames {
			return nil, io.EOF
		}
		select {
		case <-closed:
			return nil, io.EOF
		case <-tick.C:
		}

		copy(img.Y, base.Y)
		copy(img.Cb, base.Cb)
		copy(img.Cr, base.Cr)
		for y := hColorBarEnd; y < p.Height; y++ {
			row := img.YOffset(0, y)
			for x := wGradationEnd; x < p.Width; x++ {
				img.Y[row+x] = uint8(random.Int31n(2) * 255)
			}
		}
		n++
		return img, nil
	})

	return r, nil
}
