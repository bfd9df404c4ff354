package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/camrec/camrec"
	"github.com/camrec/camrec/pkg/mediastore"
)

const quitTimeout = 30 * time.Second

// shell runs the interactive record loop. Events are printed as they
// arrive, so output is serialized through mu.
type shell struct {
	ctrl    *camrec.Controller
	gallery *mediastore.Gallery
	// reselect finds a replacement camera after the current one went away.
	reselect func() (camrec.Camera, error)
	lines    <-chan string

	mu    sync.Mutex
	out   io.Writer
	cycle chan struct{}
}

// askFunc asks the user a yes/no question.
type askFunc func(ctx context.Context, question string) (bool, error)

// newShell builds a shell reading commands from in. newCtrl creates the
// controller and gets the shell's prompt, so a permission request reads its
// answer from the same input.
func newShell(in <-chan string, out io.Writer, gallery *mediastore.Gallery, newCtrl func(ask askFunc) *camrec.Controller) *shell {
	s := &shell{gallery: gallery, lines: in, out: out}
	s.ctrl = newCtrl(s.ask)
	s.ctrl.Subscribe(s.onEvent)
	return s
}

// readLines delivers the lines of r until it ends.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func (s *shell) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// ask prints question and reads a yes/no answer.
func (s *shell) ask(ctx context.Context, question string) (bool, error) {
	s.printf("%s [y/N]: ", question)
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return false, io.EOF
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

func (s *shell) run(ctx context.Context) error {
	status, err := s.ctrl.Prepare(ctx)
	if err != nil {
		s.printf("permission: %v\n", err)
	} else if status != camrec.PermissionGranted {
		s.printf("camera permission %s, recording is disabled\n", status)
	}

	s.printf("Commands: %s, start, stop, status, list, quit\n", strings.Join(camrec.Resolutions(), ", "))
	for {
		select {
		case <-ctx.Done():
			s.quit()
			return nil
		case line, ok := <-s.lines:
			if !ok {
				s.quit()
				return nil
			}
			if !s.exec(strings.TrimSpace(line)) {
				s.quit()
				return nil
			}
		}
	}
}

// exec runs one command and reports whether the loop should continue.
func (s *shell) exec(cmd string) bool {
	switch strings.ToLower(cmd) {
	case "":
	case "q", "quit", "exit":
		return false
	case "start":
		s.start()
	case "stop":
		if err := s.ctrl.Stop(); err != nil {
			s.printf("stop failed: %v\n", err)
		}
	case "status":
		s.status()
	case "list":
		s.list()
	case "help", "?":
		s.printf("Commands: %s, start, stop, status, list, quit\n", strings.Join(camrec.Resolutions(), ", "))
	default:
		if label, ok := resolutionLabel(cmd); ok {
			if err := s.ctrl.SelectFormat(label); err != nil {
				s.printf("can't change resolution: %v\n", err)
			} else {
				s.printf("resolution %s\n", s.ctrl.Resolution())
			}
			return true
		}
		s.printf("unknown command %q\n", cmd)
	}
	return true
}

func resolutionLabel(cmd string) (string, bool) {
	for _, label := range camrec.Resolutions() {
		if strings.EqualFold(cmd, label) {
			return label, true
		}
	}
	return "", false
}

func (s *shell) start() {
	s.mu.Lock()
	if s.cycle == nil {
		s.cycle = make(chan struct{})
	}
	s.mu.Unlock()

	err := s.ctrl.Start()
	if errors.Is(err, camrec.ErrNotReady) && s.reselect != nil {
		if cam, rerr := s.reselect(); rerr == nil {
			if serr := s.ctrl.SetCamera(cam); serr == nil {
				err = s.ctrl.Start()
			}
		}
	}
	if err != nil {
		s.endCycle()
		s.printf("start failed: %v\n", err)
	}
}

func (s *shell) status() {
	state := s.ctrl.State()
	if f, ok := s.ctrl.ActiveFormat(); ok {
		s.printf("%s at %s\n", state, f)
	} else {
		s.printf("%s, next recording %s (%s)\n", state, s.ctrl.Resolution(), s.ctrl.Format())
	}
	if res, ok := s.ctrl.LastResult(); ok {
		s.printf("last clip %s, %.2fs, %d bytes\n", res.FilePath, res.Duration, res.Size)
	}
}

func (s *shell) list() {
	if s.gallery == nil {
		s.printf("no gallery configured\n")
		return
	}
	items, err := s.gallery.List()
	if err != nil {
		s.printf("list failed: %v\n", err)
		return
	}
	if len(items) == 0 {
		s.printf("gallery %s is empty\n", s.gallery.Dir())
	}
	for _, it := range items {
		s.printf("  %s  %d bytes  %s\n", it.Name, it.Size, it.ModTime.Format(time.DateTime))
	}
}

// quit stops a running recording and waits until its clip is handled.
func (s *shell) quit() {
	if s.ctrl.State() == camrec.Recording {
		if err := s.ctrl.Stop(); err != nil {
			s.printf("stop failed: %v\n", err)
		}
	}

	s.mu.Lock()
	cycle := s.cycle
	s.mu.Unlock()
	if cycle == nil {
		return
	}
	select {
	case <-cycle:
	case <-time.After(quitTimeout):
		s.printf("gave up waiting for the recording to finish\n")
	}
}

func (s *shell) endCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycle != nil {
		close(s.cycle)
		s.cycle = nil
	}
}

func (s *shell) onEvent(e camrec.Event) {
	switch e.Type {
	case camrec.EventStateChanged:
		if e.State == camrec.Recording {
			s.printf("recording at %s\n", e.Format)
		}
	case camrec.EventFinished:
		s.printf("recorded %s (%.2fs, %d bytes)\n", e.Result.FilePath, e.Result.Duration, e.Result.Size)
		if s.gallery == nil {
			s.endCycle()
		}
	case camrec.EventSaved:
		s.printf("saved %s into %s\n", e.Result.FilePath, s.gallery.Dir())
		s.endCycle()
	case camrec.EventFailed:
		s.printf("error: %v\n", e.Err)
		// A stop failure leaves the recording running.
		if errors.Is(e.Err, camrec.ErrPersistence) || e.State == camrec.Idle {
			s.endCycle()
		}
	}
}
