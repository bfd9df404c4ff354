// Package capture records clips from a driver. A Device implements the
// camera capability of the recording session controller.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/camrec/camrec"
	"github.com/camrec/camrec/pkg/driver"
	"github.com/camrec/camrec/pkg/driver/availability"
	"github.com/camrec/camrec/pkg/io/video"
	"github.com/camrec/camrec/pkg/y4m"
	"github.com/google/uuid"
	plogging "github.com/pion/logging"
)

// ErrNotRecording is returned by RequestStop when no capture is running.
var ErrNotRecording = errors.New("capture: not recording")

var errNotVideoRecorder = errors.New("capture: driver can't record video")

// Device drives one video source. A capture runs on its own goroutine from
// RequestStart until it is stopped or the source ends.
type Device struct {
	DeviceOptions
	drv driver.Driver
	rec driver.VideoRecorder
	log plogging.LeveledLogger

	mu      sync.Mutex
	session *session
	// done belongs to the latest capture and stays set after it ended.
	done chan struct{}
}

type session struct {
	stop     chan struct{}
	stopOnce sync.Once
	// ended is closed when no more frames are read, done once the
	// callback is due.
	ended chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

func (s *session) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *session) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

var _ camrec.Camera = (*Device)(nil)
var _ camrec.Readier = (*Device)(nil)

// NewDevice wraps d, which must be able to record video.
func NewDevice(d driver.Driver, opts ...DeviceOption) (*Device, error) {
	rec, ok := d.(driver.VideoRecorder)
	if !ok {
		return nil, errNotVideoRecorder
	}

	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Device{
		DeviceOptions: o,
		drv:           d,
		rec:           rec,
		log:           o.LoggerFactory.NewLogger("camrec/capture"),
	}, nil
}

// Driver returns the wrapped driver.
func (d *Device) Driver() driver.Driver {
	return d.drv
}

// Ready reports availability.ErrNoDevice once the driver has been
// unregistered, e.g. because the camera was unplugged.
func (d *Device) Ready() error {
	if len(d.Manager.Query(driver.FilterID(d.drv.ID()))) == 0 {
		return fmt.Errorf("capture: %s: %w", d.drv.Info().Label, availability.ErrNoDevice)
	}
	return nil
}

// RequestStart starts recording a clip in format. Exactly one of the
// callbacks runs once the capture ends.
func (d *Device) RequestStart(format camrec.CaptureFormat, cb camrec.CaptureCallbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		return availability.ErrBusy
	}
	if err := d.Ready(); err != nil {
		return err
	}
	if format.Width <= 0 || format.Height <= 0 || format.FrameRate <= 0 {
		return fmt.Errorf("capture: invalid format %s", format)
	}

	r, err := d.open(format)
	if err != nil {
		return err
	}

	path := filepath.Join(d.Dir, clipName(d.now(), uuid.NewString()))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		_ = d.drv.Close()
		return fmt.Errorf("capture: create clip: %w", err)
	}

	bw := bufio.NewWriter(f)
	w, err := y4m.NewWriter(bw, y4m.Header{Width: format.Width, Height: format.Height, FrameRate: format.FrameRate})
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		_ = d.drv.Close()
		return fmt.Errorf("capture: %w", err)
	}

	s := &session{
		stop:  make(chan struct{}),
		ended: make(chan struct{}),
		done:  make(chan struct{}),
	}
	d.session = s
	d.done = s.done
	d.log.Infof("capturing %s from %s into %s", format, d.drv.Info().Label, path)

	s.wg.Add(1)
	go d.unblockOnStop(s)
	go d.run(s, r, clip{path: path, file: f, buf: bw, w: w, fps: format.FrameRate}, cb)
	return nil
}

// open opens the driver if needed and starts it in the mode closest to
// format. The returned reader yields frames of exactly format's size at
// no more than its frame rate.
func (d *Device) open(format camrec.CaptureFormat) (video.Reader, error) {
	if d.drv.Status() == driver.StateClosed {
		if err := d.drv.Open(); err != nil {
			return nil, fmt.Errorf("capture: open %s: %w", d.drv.Info().Label, err)
		}
	}

	p, _, ok := bestProperty(constraintsFor(format), d.drv.Properties())
	if !ok {
		_ = d.drv.Close()
		return nil, fmt.Errorf("capture: %s has no mode for %s", d.drv.Info().Label, format)
	}
	d.log.Debugf("selected %s for %s", p.Video, format)

	r, err := d.rec.VideoRecord(p)
	if err != nil {
		_ = d.drv.Close()
		return nil, fmt.Errorf("capture: start %s: %w", d.drv.Info().Label, err)
	}

	transform := video.Merge(
		video.Throttle(float32(format.FrameRate)),
		video.Scale(format.Width, format.Height, d.Scaler),
	)
	return transform(r), nil
}

// RequestStop asks the running capture to finish. The completion callback
// follows asynchronously.
func (d *Device) RequestStop() error {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()

	if s == nil {
		return ErrNotRecording
	}
	s.requestStop()
	return nil
}

// Wait blocks until the latest capture, if any, has returned from its
// callback. It must not be called from a callback.
func (d *Device) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	if done != nil {
		<-done
	}
}

// unblockOnStop closes the driver when a stop is requested so a pending
// read returns.
func (d *Device) unblockOnStop(s *session) {
	defer s.wg.Done()
	select {
	case <-s.stop:
		_ = d.drv.Close()
	case <-s.ended:
	}
}

type clip struct {
	path string
	file *os.File
	buf  *bufio.Writer
	w    *y4m.Writer
	fps  int
}

func (c clip) close() error {
	if err := c.buf.Flush(); err != nil {
		_ = c.file.Close()
		return err
	}
	if err := c.file.Sync(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

func (d *Device) run(s *session, r video.Reader, c clip, cb camrec.CaptureCallbacks) {
	err := d.record(s, r, c)
	close(s.ended)
	s.wg.Wait()
	if cerr := c.close(); err == nil {
		err = cerr
	}

	var vf camrec.VideoFile
	if err == nil {
		var info os.FileInfo
		if info, err = os.Stat(c.path); err == nil {
			vf = camrec.VideoFile{
				Path:     c.path,
				Duration: float64(c.w.Frames()) / float64(c.fps),
				Size:     info.Size(),
			}
		}
	}
	if err != nil {
		if rerr := os.Remove(c.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			d.log.Warnf("failed to remove partial clip %s: %v", c.path, rerr)
		}
	}

	if cerr := d.drv.Close(); cerr != nil {
		d.log.Warnf("failed to close %s: %v", d.drv.Info().Label, cerr)
	}

	d.mu.Lock()
	d.session = nil
	d.mu.Unlock()
	defer close(s.done)

	if err != nil {
		d.log.Errorf("capture failed: %v", err)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}
	d.log.Infof("captured %d frames into %s", c.w.Frames(), c.path)
	if cb.OnFinished != nil {
		cb.OnFinished(vf)
	}
}

func (d *Device) record(s *session, r video.Reader, c clip) error {
	for !s.stopping() {
		img, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) || s.stopping() {
				// A stop closes the source, whatever the read reports then
				// is the end of the clip.
				return nil
			}
			return fmt.Errorf("capture: read frame: %w", err)
		}
		if err := c.w.WriteFrame(img); err != nil {
			return fmt.Errorf("capture: write frame: %w", err)
		}
	}
	return nil
}
