package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/blackjack/webcam"
	"github.com/camrec/camrec/pkg/driver"
	"github.com/camrec/camrec/pkg/frame"
	"github.com/camrec/camrec/pkg/io/video"
	"github.com/camrec/camrec/pkg/prop"
)

const (
	maxEmptyFrameCount = 5
	// frameTimeout is in seconds.
	frameTimeout = 5

	devDir        = "/dev"
	byPathPattern = "/dev/v4l/by-path/*"
)

var (
	errReadTimeout = errors.New("read timeout")
	errEmptyFrame  = errors.New("empty frame")
)

// fourcc builds a V4L2 pixel format code, see v4l2_fourcc in videodev2.h.
func fourcc(a, b, c, d byte) webcam.PixelFormat {
	return webcam.PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

var (
	pixFmtYUYV  = fourcc('Y', 'U', 'Y', 'V')
	pixFmtUYVY  = fourcc('U', 'Y', 'V', 'Y')
	pixFmtNV12  = fourcc('N', 'V', '1', '2')
	pixFmtNV21  = fourcc('N', 'V', '2', '1')
	pixFmtYU12  = fourcc('Y', 'U', '1', '2')
	pixFmtMJPEG = fourcc('M', 'J', 'P', 'G')
)

// Camera implementation using v4l2
// Reference: https://linuxtv.org/downloads/v4l-dvb-apis/uapi/v4l/videodev.html#videodev
type camera struct {
	path            string
	cam             *webcam.Webcam
	formats         map[webcam.PixelFormat]frame.Format
	reversedFormats map[frame.Format]webcam.PixelFormat
	mutex           sync.Mutex
	cancel          func()
}

func init() {
	m := driver.GetManager()
	discovered := make(map[string]struct{})
	discover(m, discovered, byPathPattern)
	discover(m, discovered, filepath.Join(devDir, "video*"))
}

// discover registers every device matching pattern that has not been seen
// yet. Symlinks are keyed by their target so a device is registered once.
func discover(m *driver.Manager, discovered map[string]struct{}, pattern string) {
	devices, err := filepath.Glob(pattern)
	if err != nil {
		// No v4l device.
		return
	}
	for _, device := range devices {
		target, err := filepath.EvalSymlinks(device)
		if err != nil {
			continue
		}
		if _, ok := discovered[target]; ok {
			continue
		}
		discovered[target] = struct{}{}

		label := filepath.Base(device) + LabelSeparator + filepath.Base(target)
		if err := register(m, target, label); err != nil {
			logger.Warnf("failed to register %s: %v", target, err)
		}
	}
}

func register(m *driver.Manager, path, label string) error {
	if len(m.Query(driver.FilterName(path))) > 0 {
		return nil
	}
	_, err := m.Register(newCamera(path), driver.Info{
		Label:      label,
		DeviceType: driver.Camera,
		Priority:   driver.PriorityNormal,
		Name:       path,
	})
	if err != nil {
		return err
	}
	logger.Debugf("registered camera %s at %s", label, path)
	return nil
}

func newCamera(path string) *camera {
	formats := map[webcam.PixelFormat]frame.Format{
		pixFmtYUYV:  frame.FormatYUYV,
		pixFmtUYVY:  frame.FormatUYVY,
		pixFmtNV12:  frame.FormatNV12,
		pixFmtNV21:  frame.FormatNV21,
		pixFmtYU12:  frame.FormatI420,
		pixFmtMJPEG: frame.FormatMJPEG,
	}

	reversedFormats := make(map[frame.Format]webcam.PixelFormat)
	for k, v := range formats {
		reversedFormats[v] = k
	}

	return &camera{
		path:            path,
		formats:         formats,
		reversedFormats: reversedFormats,
	}
}

func (c *camera) Open() error {
	cam, err := webcam.Open(c.path)
	if err != nil {
		return err
	}

	c.cam = cam
	return nil
}

func (c *camera) Close() error {
	if c.cam == nil {
		return nil
	}

	if c.cancel != nil {
		// Let the reader knows that the caller has closed the camera
		c.cancel()
		// Wait until the reader unref the buffer
		c.mutex.Lock()
		defer c.mutex.Unlock()

		// StopStreaming frees the mmap buffers, frames handed out are copies.
		_ = c.cam.StopStreaming()
		c.cancel = nil
	}
	err := c.cam.Close()
	c.cam = nil
	return err
}

func (c *camera) VideoRecord(p prop.Media) (video.Reader, error) {
	decoder, err := frame.NewDecoder(p.FrameFormat)
	if err != nil {
		return nil, err
	}

	pf, ok := c.reversedFormats[p.FrameFormat]
	if !ok {
		return nil, fmt.Errorf("camera: unsupported frame format %s", p.FrameFormat)
	}
	_, w, h, err := c.cam.SetImageFormat(pf, uint32(p.Width), uint32(p.Height))
	if err != nil {
		return nil, err
	}
	// The device may round the size to one it supports.
	width, height := int(w), int(h)

	if err := c.cam.StartStreaming(); err != nil {
		return nil, err
	}

	cam := c.cam

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	var buf []byte
	r := video.ReaderFunc(func() (image.Image, error) {
		// Lock to avoid accessing the buffer after StopStreaming()
		c.mutex.Lock()
		defer c.mutex.Unlock()

		for i := 0; i < maxEmptyFrameCount; i++ {
			if ctx.Err() != nil {
				// Return EOF if the camera is already closed.
				return nil, io.EOF
			}

			err := cam.WaitForFrame(frameTimeout)
			switch err.(type) {
			case nil:
			case *webcam.Timeout:
				return nil, errReadTimeout
			default:
				// Camera has been stopped.
				return nil, err
			}

			b, err := cam.ReadFrame()
			if err != nil {
				return nil, err
			}

			if len(b) == 0 {
				continue
			}

			if len(b) > len(buf) {
				buf = make([]byte, len(b))
			}

			// Copy out of the mmap buffer so frames stay valid after Close.
			n := copy(buf, b)
			return decoder.Decode(buf[:n], width, height)
		}
		return nil, errEmptyFrame
	})

	return r, nil
}

func (c *camera) Properties() []prop.Media {
	if c.cam == nil {
		return nil
	}
	properties := make([]prop.Media, 0)
	for format := range c.cam.GetSupportedFormats() {
		f, ok := c.formats[format]
		if !ok {
			continue
		}
		for _, frameSize := range c.cam.GetSupportedFrameSizes(format) {
			properties = append(properties, prop.Media{
				Video: prop.Video{
					Width:       int(frameSize.MaxWidth),
					Height:      int(frameSize.MaxHeight),
					FrameFormat: f,
				},
			})
		}
	}
	return properties
}

// labelFor finds the by-path link of a device node, falling back to the
// node name.
func labelFor(path, byPath string) string {
	links, _ := filepath.Glob(byPath)
	for _, link := range links {
		if target, err := filepath.EvalSymlinks(link); err == nil && target == path {
			return filepath.Base(link) + LabelSeparator + filepath.Base(path)
		}
	}
	return filepath.Base(path) + LabelSeparator + filepath.Base(path)
}

func isDeviceNode(path string) bool {
	ok, _ := filepath.Match("video*", filepath.Base(path))
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
