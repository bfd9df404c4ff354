// Package camrec implements a recording session controller: the state
// machine that starts and stops capture on a camera, locks the capture
// format for the duration of a recording and hands finished clips to a
// media store.
//
// The camera, the permission and the media store are supplied by the host.
// Implementations for V4L2 cameras, command sources, synthetic sources and
// gallery directories live under pkg/.
package camrec

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	plogging "github.com/pion/logging"
)

var errNoCamera = errors.New("no camera")

// Controller is the recording session controller. It is safe for
// concurrent use. The camera's completion or error callback is the only
// way a recording returns to Idle.
type Controller struct {
	ControllerOptions
	log plogging.LeveledLogger

	// reqMu serializes camera requests. Callbacks never take it, so a camera
	// may call back from inside a request.
	reqMu sync.Mutex

	// Events are queued and delivered in order by one goroutine at a time,
	// never while reqMu is held.
	evMu      sync.Mutex
	events    []Event
	inRequest bool
	flushing  bool

	mu         sync.Mutex
	camera     Camera
	state      State
	label      string
	pending    CaptureFormat
	active     CaptureFormat
	generation uint64
	stopping   bool
	last       *RecordingResult
	subs       map[int]func(Event)
	nextSub    int
}

// NewController creates an Idle controller for camera. camera may be nil
// until SetCamera provides one.
func NewController(camera Camera, opts ...ControllerOption) *Controller {
	o := defaultControllerOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		ControllerOptions: o,
		log:               o.loggerFactory.NewLogger("camrec"),
		camera:            camera,
		subs:              make(map[int]func(Event)),
	}

	f, ok := FormatFor(o.resolution)
	if !ok {
		c.log.Warnf("unknown resolution %q, using %s", o.resolution, DefaultResolution)
		o.resolution = DefaultResolution
		c.resolution = DefaultResolution
	}
	c.label = o.resolution
	c.pending = f
	return c
}

// Prepare asks for camera permission if it has not been decided yet, and
// returns the resulting status.
func (c *Controller) Prepare(ctx context.Context) (PermissionStatus, error) {
	if c.permission == nil {
		return PermissionGranted, nil
	}

	status := c.permission.Status()
	if status != PermissionUnknown {
		return status, nil
	}

	status, err := c.permission.Request(ctx)
	if err != nil {
		return status, fmt.Errorf("camrec: request permission: %w", err)
	}
	c.log.Infof("camera permission %s", status)
	return status, nil
}

// SetCamera replaces the camera handle. It is rejected while recording.
func (c *Controller) SetCamera(camera Camera) error {
	c.lockRequest()
	defer c.unlockRequest()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Recording {
		return ErrRecording
	}
	c.camera = camera
	return nil
}

// Start begins a recording with the selected format. It is a no-op while
// recording and fails with ErrNotReady when there is no usable camera or
// permission is not granted. Start returns once the request is issued.
func (c *Controller) Start() error {
	c.lockRequest()
	defer c.unlockRequest()

	c.mu.Lock()
	state, camera := c.state, c.camera
	c.mu.Unlock()

	if state == Recording {
		c.log.Debug("start ignored, already recording")
		return nil
	}

	// The state can't leave Idle while reqMu is held.
	if err := c.ready(camera); err != nil {
		rerr := newError(ErrNotReady, err)
		c.report(rerr, nil)
		return rerr
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = Recording
	c.stopping = false
	c.active = c.pending
	format := c.active
	c.mu.Unlock()
	c.emit(Event{Type: EventStateChanged, State: Recording, Format: format})

	err := camera.RequestStart(format, CaptureCallbacks{
		OnFinished: func(f VideoFile) { c.finished(gen, f) },
		OnError:    func(err error) { c.failed(gen, err) },
	})
	if err != nil {
		c.mu.Lock()
		revert := c.generation == gen && c.state == Recording
		if revert {
			c.state = Idle
		}
		c.mu.Unlock()

		if revert {
			c.emit(Event{Type: EventStateChanged, State: Idle, Format: format})
		}
		rerr := newError(ErrHardwareStart, err)
		c.report(rerr, nil)
		return rerr
	}

	c.log.Infof("recording started at %s", format)
	return nil
}

func (c *Controller) ready(camera Camera) error {
	if camera == nil {
		return errNoCamera
	}
	if r, ok := camera.(Readier); ok {
		if err := r.Ready(); err != nil {
			return err
		}
	}
	if c.permission != nil {
		if status := c.permission.Status(); status != PermissionGranted {
			return fmt.Errorf("camera permission %s", status)
		}
	}
	return nil
}

// Stop asks the camera to finish the current recording. The state stays
// Recording until the camera reports completion or an error. Stop is a
// no-op while Idle.
func (c *Controller) Stop() error {
	c.lockRequest()
	defer c.unlockRequest()

	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		c.log.Debug("stop ignored, not recording")
		return nil
	}
	camera, gen := c.camera, c.generation
	c.stopping = true
	c.mu.Unlock()

	if err := camera.RequestStop(); err != nil {
		c.mu.Lock()
		current := c.generation == gen && c.state == Recording
		if current {
			c.stopping = false
		}
		c.mu.Unlock()

		if !current {
			// The capture ended on its own before the stop reached it.
			c.log.Debugf("stop raced with capture end: %v", err)
			return nil
		}
		rerr := newError(ErrHardwareStop, err)
		c.report(rerr, nil)
		return rerr
	}

	c.log.Debug("stop requested")
	return nil
}

// SelectFormat picks the format used by the next Start. Unknown labels
// select 1080p. While recording the change is rejected with ErrRecording.
func (c *Controller) SelectFormat(label string) error {
	f, ok := FormatFor(label)
	if !ok {
		c.log.Warnf("unknown resolution %q, using %s", label, DefaultResolution)
		label = DefaultResolution
	}

	c.mu.Lock()
	if c.state == Recording {
		c.mu.Unlock()
		c.log.Warnf("resolution %s rejected while recording", label)
		return ErrRecording
	}
	changed := c.pending != f
	c.pending = f
	c.label = label
	c.mu.Unlock()

	if changed {
		c.emit(Event{Type: EventFormatChanged, State: Idle, Format: f})
	}
	return nil
}

func (c *Controller) finished(gen uint64, f VideoFile) {
	c.mu.Lock()
	if c.generation != gen || c.state != Recording {
		c.mu.Unlock()
		c.log.Warnf("ignoring completion of a stale capture: %s", f.Path)
		return
	}
	c.state = Idle
	res := RecordingResult{
		FilePath: f.Path,
		Duration: f.Duration,
		Size:     f.Size,
		Format:   c.active,
	}
	c.last = &res
	c.mu.Unlock()

	c.log.Infof("recording finished: %s (%.2fs, %d bytes)", res.FilePath, res.Duration, res.Size)
	c.emit(Event{Type: EventStateChanged, State: Idle, Format: res.Format})
	c.emit(Event{Type: EventFinished, State: Idle, Format: res.Format, Result: copyResult(res)})
	c.persist(res)
}

func (c *Controller) persist(res RecordingResult) {
	if c.store == nil {
		return
	}

	ctx := context.Background()
	if c.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.saveTimeout)
		defer cancel()
	}

	if err := c.mediaAllowed(ctx); err != nil {
		c.report(newError(ErrPersistence, err), copyResult(res))
		return
	}
	if err := c.store.Save(ctx, res.FilePath); err != nil {
		c.report(newError(ErrPersistence, err), copyResult(res))
		return
	}
	c.log.Debugf("saved %s", res.FilePath)
	c.emit(Event{Type: EventSaved, State: c.State(), Format: res.Format, Result: copyResult(res)})
}

func (c *Controller) mediaAllowed(ctx context.Context) error {
	if c.mediaPermission == nil {
		return nil
	}
	status := c.mediaPermission.Status()
	if status == PermissionUnknown {
		var err error
		if status, err = c.mediaPermission.Request(ctx); err != nil {
			return fmt.Errorf("request media permission: %w", err)
		}
		c.log.Infof("media permission %s", status)
	}
	if status != PermissionGranted {
		return fmt.Errorf("media permission %s", status)
	}
	return nil
}

func (c *Controller) failed(gen uint64, err error) {
	c.mu.Lock()
	if c.generation != gen || c.state != Recording {
		c.mu.Unlock()
		c.log.Warnf("ignoring error of a stale capture: %v", err)
		return
	}
	c.state = Idle
	kind := ErrHardwareStart
	if c.stopping {
		kind = ErrHardwareStop
	}
	format := c.active
	c.mu.Unlock()

	c.emit(Event{Type: EventStateChanged, State: Idle, Format: format})
	c.report(newError(kind, err), nil)
}

func (c *Controller) report(err *RecordingError, res *RecordingResult) {
	if errors.Is(err, ErrNotReady) {
		c.log.Warnf("%v", err)
	} else {
		c.log.Errorf("%v", err)
	}
	c.emit(Event{Type: EventFailed, State: c.State(), Err: err, Result: res})
}

func copyResult(r RecordingResult) *RecordingResult {
	return &r
}

// State returns the current recording state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Format returns the format the next Start will use.
func (c *Controller) Format() CaptureFormat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Resolution returns the label of the selected format.
func (c *Controller) Resolution() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

// ActiveFormat returns the format locked by the running recording.
func (c *Controller) ActiveFormat() (CaptureFormat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.state == Recording
}

// LastResult returns the most recent RecordingResult.
func (c *Controller) LastResult() (RecordingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return RecordingResult{}, false
	}
	return *c.last, true
}

// Subscribe registers fn for every future Event. Events are delivered one
// at a time in the order they happened, outside the controller's locks, so
// fn may call Start, Stop or SetCamera. fn must not block. The returned
// func unsubscribes.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// lockRequest takes reqMu. Events raised until unlockRequest are held back
// and delivered once reqMu is released, so subscribers may call back into
// the controller.
func (c *Controller) lockRequest() {
	c.reqMu.Lock()
	c.evMu.Lock()
	c.inRequest = true
	c.evMu.Unlock()
}

func (c *Controller) unlockRequest() {
	c.evMu.Lock()
	c.inRequest = false
	c.evMu.Unlock()
	c.reqMu.Unlock()
	c.flush()
}

func (c *Controller) emit(e Event) {
	c.evMu.Lock()
	c.events = append(c.events, e)
	c.evMu.Unlock()
	c.flush()
}

// flush delivers queued events unless a request is in progress or another
// call is already delivering. Events queued meanwhile are picked up by the
// running loop.
func (c *Controller) flush() {
	c.evMu.Lock()
	if c.flushing || c.inRequest {
		c.evMu.Unlock()
		return
	}
	c.flushing = true
	for len(c.events) > 0 {
		e := c.events[0]
		c.events = c.events[1:]
		c.evMu.Unlock()
		c.deliver(e)
		c.evMu.Lock()
	}
	c.events = nil
	c.flushing = false
	c.evMu.Unlock()
}

func (c *Controller) deliver(e Event) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
