package camrec

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	mu       sync.Mutex
	starts   []CaptureFormat
	stops    int
	cb       CaptureCallbacks
	startErr error
	stopErr  error
	readyErr error
	// onStart runs inside RequestStart, after the callbacks are stored.
	onStart func(CaptureCallbacks)
}

func (f *fakeCamera) RequestStart(format CaptureFormat, cb CaptureCallbacks) error {
	f.mu.Lock()
	if f.startErr != nil {
		f.mu.Unlock()
		return f.startErr
	}
	f.starts = append(f.starts, format)
	f.cb = cb
	onStart := f.onStart
	f.mu.Unlock()

	if onStart != nil {
		onStart(cb)
	}
	return nil
}

func (f *fakeCamera) RequestStop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

func (f *fakeCamera) Ready() error { return f.readyErr }

func (f *fakeCamera) callbacks() CaptureCallbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *fakeCamera) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type fakePermission struct {
	status  PermissionStatus
	grantTo PermissionStatus
	asked   int
}

func (p *fakePermission) Status() PermissionStatus { return p.status }

func (p *fakePermission) Request(context.Context) (PermissionStatus, error) {
	p.asked++
	p.status = p.grantTo
	return p.status, nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (s *fakeStore) Save(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, path)
	return s.err
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(c *Controller) *recorder {
	r := &recorder{}
	c.Subscribe(func(e Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func granted() *fakePermission { return &fakePermission{status: PermissionGranted} }

func TestFormatFor(t *testing.T) {
	cases := map[string]CaptureFormat{
		"720p":  {Width: 1280, Height: 720, FrameRate: 30},
		"1080p": {Width: 1920, Height: 1080, FrameRate: 30},
		"4K":    {Width: 3840, Height: 2160, FrameRate: 30},
	}
	for label, want := range cases {
		got, ok := FormatFor(label)
		assert.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}

	for _, label := range []string{"", "8K", "4k", "480p"} {
		got, ok := FormatFor(label)
		assert.False(t, ok, label)
		assert.Equal(t, cases["1080p"], got, label)
	}
}

func TestResolutions(t *testing.T) {
	assert.Equal(t, []string{"720p", "1080p", "4K"}, Resolutions())
}

func TestNewControllerDefaults(t *testing.T) {
	c := NewController(nil, WithResolution("bogus"))
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, DefaultResolution, c.Resolution())
	assert.Equal(t, CaptureFormat{Width: 1920, Height: 1080, FrameRate: 30}, c.Format())
	_, ok := c.LastResult()
	assert.False(t, ok)
}

func TestStartTransitionsToRecording(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()), WithResolution(Resolution720p))
	events := record(c)

	require.NoError(t, c.Start())
	assert.Equal(t, Recording, c.State())
	require.Equal(t, 1, cam.startCount())
	assert.Equal(t, CaptureFormat{Width: 1280, Height: 720, FrameRate: 30}, cam.starts[0])

	active, ok := c.ActiveFormat()
	assert.True(t, ok)
	assert.Equal(t, cam.starts[0], active)

	changes := events.ofType(EventStateChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, Recording, changes[0].State)
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()))

	require.NoError(t, c.Start())
	require.NoError(t, c.Start())
	assert.Equal(t, 1, cam.startCount())
	assert.Equal(t, Recording, c.State())
}

func TestStartNotReady(t *testing.T) {
	cases := map[string]struct {
		camera     Camera
		permission Permission
	}{
		"NoCamera":          {nil, granted()},
		"PermissionDenied":  {&fakeCamera{}, &fakePermission{status: PermissionDenied}},
		"PermissionUnknown": {&fakeCamera{}, &fakePermission{status: PermissionUnknown}},
		"StaleCamera":       {&fakeCamera{readyErr: errors.New("unplugged")}, granted()},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewController(tc.camera, WithPermission(tc.permission))
			events := record(c)

			err := c.Start()
			assert.ErrorIs(t, err, ErrNotReady)
			assert.Equal(t, Idle, c.State())
			if cam, ok := tc.camera.(*fakeCamera); ok {
				assert.Zero(t, cam.startCount())
			}

			failed := events.ofType(EventFailed)
			require.Len(t, failed, 1)
			assert.ErrorIs(t, failed[0].Err, ErrNotReady)
		})
	}
}

func TestStopDoesNotChangeState(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()))

	require.NoError(t, c.Stop())
	assert.Zero(t, cam.stops, "stop while idle must not reach the camera")

	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
	assert.Equal(t, 1, cam.stops)
	assert.Equal(t, Recording, c.State())
}

func TestCompletionProducesResult(t *testing.T) {
	cam := &fakeCamera{}
	store := &fakeStore{}
	c := NewController(cam, WithPermission(granted()), WithMediaStore(store))
	events := record(c)

	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
	cam.callbacks().OnFinished(VideoFile{Path: "/tmp/a.mp4", Duration: 5.2, Size: 1048576})

	assert.Equal(t, Idle, c.State())
	res, ok := c.LastResult()
	require.True(t, ok)
	assert.Equal(t, "/tmp/a.mp4", res.FilePath)
	assert.Equal(t, 5.2, res.Duration)
	assert.Equal(t, int64(1048576), res.Size)
	assert.Equal(t, c.Format(), res.Format)
	assert.Equal(t, []string{"/tmp/a.mp4"}, store.saved)

	finished := events.ofType(EventFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, res, *finished[0].Result)
	assert.Len(t, events.ofType(EventSaved), 1)
}

func TestErrorCallbackProducesNoResult(t *testing.T) {
	cam := &fakeCamera{}
	store := &fakeStore{}
	c := NewController(cam, WithPermission(granted()), WithMediaStore(store))
	events := record(c)

	require.NoError(t, c.Start())
	cam.callbacks().OnError(errors.New("sensor overheated"))

	assert.Equal(t, Idle, c.State())
	_, ok := c.LastResult()
	assert.False(t, ok)
	assert.Empty(t, store.saved)
	assert.Empty(t, events.ofType(EventFinished))

	failed := events.ofType(EventFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrHardwareStart)

	// The controller stays usable.
	require.NoError(t, c.Start())
	assert.Equal(t, Recording, c.State())
}

func TestErrorAfterStopIsStopFailure(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()))
	events := record(c)

	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
	cause := errors.New("flush failed")
	cam.callbacks().OnError(cause)

	failed := events.ofType(EventFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrHardwareStop)
	assert.ErrorIs(t, failed[0].Err, cause)
	assert.Equal(t, Idle, c.State())
}

func TestHardwareStartFailure(t *testing.T) {
	cam := &fakeCamera{startErr: errors.New("busy")}
	c := NewController(cam, WithPermission(granted()))
	events := record(c)

	err := c.Start()
	assert.ErrorIs(t, err, ErrHardwareStart)
	assert.Equal(t, Idle, c.State())

	changes := events.ofType(EventStateChanged)
	require.Len(t, changes, 2)
	assert.Equal(t, Recording, changes[0].State)
	assert.Equal(t, Idle, changes[1].State)
}

func TestHardwareStopFailureKeepsRecording(t *testing.T) {
	cam := &fakeCamera{stopErr: errors.New("ioctl failed")}
	c := NewController(cam, WithPermission(granted()))

	require.NoError(t, c.Start())
	err := c.Stop()
	assert.ErrorIs(t, err, ErrHardwareStop)
	assert.Equal(t, Recording, c.State())

	cam.callbacks().OnFinished(VideoFile{Path: "/tmp/b.y4m"})
	assert.Equal(t, Idle, c.State())
}

func TestSelectFormat(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()))
	events := record(c)

	require.NoError(t, c.SelectFormat(Resolution4K))
	assert.Equal(t, Resolution4K, c.Resolution())
	assert.Equal(t, CaptureFormat{Width: 3840, Height: 2160, FrameRate: 30}, c.Format())

	require.NoError(t, c.SelectFormat("nonsense"))
	assert.Equal(t, Resolution1080p, c.Resolution())
	assert.Equal(t, CaptureFormat{Width: 1920, Height: 1080, FrameRate: 30}, c.Format())

	// Selecting the same format again is silent.
	require.NoError(t, c.SelectFormat(Resolution1080p))
	assert.Len(t, events.ofType(EventFormatChanged), 2)
}

func TestSelectFormatWhileRecording(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()), WithResolution(Resolution720p))

	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.SelectFormat(Resolution4K), ErrRecording)
	assert.Equal(t, Resolution720p, c.Resolution())

	cam.callbacks().OnFinished(VideoFile{Path: "/tmp/c.y4m"})
	res, ok := c.LastResult()
	require.True(t, ok)
	assert.Equal(t, CaptureFormat{Width: 1280, Height: 720, FrameRate: 30}, res.Format)
}

func TestPersistenceFailureKeepsResult(t *testing.T) {
	cam := &fakeCamera{}
	store := &fakeStore{err: errors.New("disk full")}
	c := NewController(cam, WithPermission(granted()), WithMediaStore(store))
	events := record(c)

	require.NoError(t, c.Start())
	cam.callbacks().OnFinished(VideoFile{Path: "/tmp/d.y4m", Duration: 1, Size: 10})

	res, ok := c.LastResult()
	require.True(t, ok)
	assert.Equal(t, "/tmp/d.y4m", res.FilePath)

	failed := events.ofType(EventFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrPersistence)
	require.NotNil(t, failed[0].Result)
	assert.Equal(t, res, *failed[0].Result)
	assert.Empty(t, events.ofType(EventSaved))
}

func TestStaleCallbackIgnored(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()))

	require.NoError(t, c.Start())
	first := cam.callbacks()
	first.OnFinished(VideoFile{Path: "/tmp/1.y4m"})

	require.NoError(t, c.Start())
	first.OnFinished(VideoFile{Path: "/tmp/late.y4m"})
	first.OnError(errors.New("late"))

	assert.Equal(t, Recording, c.State())
	res, _ := c.LastResult()
	assert.Equal(t, "/tmp/1.y4m", res.FilePath)
}

func TestSynchronousCallback(t *testing.T) {
	cam := &fakeCamera{onStart: func(cb CaptureCallbacks) {
		cb.OnError(errors.New("no frames"))
	}}
	c := NewController(cam, WithPermission(granted()))

	require.NoError(t, c.Start())
	assert.Equal(t, Idle, c.State())
}

func TestConcurrentStart(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Start()
			_ = c.SelectFormat(Resolution4K)
			_ = c.Stop()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cam.startCount())
	assert.Equal(t, Recording, c.State())
}

func TestPrepare(t *testing.T) {
	p := &fakePermission{status: PermissionUnknown, grantTo: PermissionGranted}
	c := NewController(&fakeCamera{}, WithPermission(p))

	status, err := c.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, status)

	status, err = c.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, status)
	assert.Equal(t, 1, p.asked, "a decided permission must not be asked again")

	require.NoError(t, c.Start())
}

func TestSetCamera(t *testing.T) {
	c := NewController(nil)
	assert.ErrorIs(t, c.Start(), ErrNotReady)

	cam := &fakeCamera{}
	require.NoError(t, c.SetCamera(cam))
	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.SetCamera(&fakeCamera{}), ErrRecording)
}

func TestSubscriberStopsOnRecording(t *testing.T) {
	cam := &fakeCamera{}
	c := NewController(cam, WithPermission(granted()))
	stopErr := make(chan error, 1)
	c.Subscribe(func(e Event) {
		if e.Type == EventStateChanged && e.State == Recording {
			stopErr <- c.Stop()
		}
	})

	done := make(chan error, 1)
	go func() { done <- c.Start() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}
	require.NoError(t, <-stopErr)
	assert.Equal(t, 1, cam.stops)
	assert.Equal(t, Recording, c.State())
}

func TestSubscriberRestartsAfterFinish(t *testing.T) {
	cam := &stopFinishCamera{}
	c := NewController(cam, WithPermission(granted()))
	r := record(c)

	restarted := make(chan error, 1)
	var once sync.Once
	c.Subscribe(func(e Event) {
		if e.Type == EventFinished {
			once.Do(func() { restarted <- c.Start() })
		}
	})

	require.NoError(t, c.Start())
	done := make(chan error, 1)
	go func() { done <- c.Stop() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	require.NoError(t, <-restarted)
	assert.Equal(t, Recording, c.State())
	assert.Equal(t, 2, cam.starts)
	assert.Len(t, r.ofType(EventFinished), 1)

	states := r.ofType(EventStateChanged)
	require.Len(t, states, 3)
	assert.Equal(t, []State{Recording, Idle, Recording}, []State{states[0].State, states[1].State, states[2].State})
}

// stopFinishCamera completes the clip from inside RequestStop.
type stopFinishCamera struct {
	starts int
	cb     CaptureCallbacks
}

func (s *stopFinishCamera) RequestStart(_ CaptureFormat, cb CaptureCallbacks) error {
	s.starts++
	s.cb = cb
	return nil
}

func (s *stopFinishCamera) RequestStop() error {
	s.cb.OnFinished(VideoFile{Path: "clip.y4m", Duration: 1, Size: 10})
	return nil
}

func TestMediaPermissionDenied(t *testing.T) {
	cam := &fakeCamera{}
	store := &fakeStore{}
	media := &fakePermission{grantTo: PermissionDenied}
	c := NewController(cam, WithPermission(granted()), WithMediaStore(store), WithMediaPermission(media))
	events := record(c)

	require.NoError(t, c.Start())
	cam.callbacks().OnFinished(VideoFile{Path: "/tmp/e.y4m", Duration: 1, Size: 10})

	assert.Equal(t, 1, media.asked)
	assert.Empty(t, store.saved)
	_, ok := c.LastResult()
	assert.True(t, ok)

	failed := events.ofType(EventFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrPersistence)
	assert.Empty(t, events.ofType(EventSaved))
}

func TestMediaPermissionRequestedOnce(t *testing.T) {
	cam := &fakeCamera{}
	store := &fakeStore{}
	media := &fakePermission{grantTo: PermissionGranted}
	c := NewController(cam, WithPermission(granted()), WithMediaStore(store), WithMediaPermission(media))
	events := record(c)

	for _, path := range []string{"/tmp/f.y4m", "/tmp/g.y4m"} {
		require.NoError(t, c.Start())
		cam.callbacks().OnFinished(VideoFile{Path: path})
	}

	assert.Equal(t, 1, media.asked)
	assert.Equal(t, []string{"/tmp/f.y4m", "/tmp/g.y4m"}, store.saved)
	assert.Len(t, events.ofType(EventSaved), 2)
}

func TestSubscribeCancel(t *testing.T) {
	c := NewController(&fakeCamera{})
	var n int
	cancel := c.Subscribe(func(Event) { n++ })

	require.NoError(t, c.SelectFormat(Resolution720p))
	cancel()
	cancel()
	require.NoError(t, c.SelectFormat(Resolution4K))
	assert.Equal(t, 1, n)
}

func TestRecordingError(t *testing.T) {
	cause := errors.New("cause")
	err := newError(ErrPersistence, cause)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotReady)
	assert.Equal(t, "camrec: saving clip failed: cause", err.Error())
	assert.Equal(t, ErrNotReady.Error(), newError(ErrNotReady, nil).Error())
}
