package cmdsource

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/camrec/camrec/pkg/driver"
	"github.com/camrec/camrec/pkg/frame"
	"github.com/camrec/camrec/pkg/io/video"
	"github.com/camrec/camrec/pkg/prop"
)

type videoCmdSource struct {
	*cmdSource
}

// AddVideoCmdSource registers command with the driver manager. command must
// write frames of exactly the advertised size and format to its standard
// output. A read waits at most readTimeout for a frame, zero waits forever.
func AddVideoCmdSource(label string, command string, mediaProperties []prop.Media, readTimeout time.Duration) (string, error) {
	s, err := newVideoCmdSource(command, mediaProperties, readTimeout)
	if err != nil {
		return "", err
	}

	return driver.GetManager().Register(s, driver.Info{
		Label:      label,
		DeviceType: driver.CmdSource,
		Priority:   driver.PriorityNormal,
		Name:       s.cmdArgs[0],
	})
}

func newVideoCmdSource(command string, mediaProperties []prop.Media, readTimeout time.Duration) (*videoCmdSource, error) {
	s, err := newCmdSource(command, mediaProperties, readTimeout)
	if err != nil {
		return nil, err
	}
	return &videoCmdSource{cmdSource: s}, nil
}

type frameResult struct {
	buf []byte
	err error
}

func (c *videoCmdSource) VideoRecord(inputProp prop.Media) (video.Reader, error) {
	frameSize, err := frame.Size(inputProp.FrameFormat, inputProp.Width, inputProp.Height)
	if err != nil {
		return nil, err
	}

	decoder, err := frame.NewDecoder(inputProp.FrameFormat)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	cmd, done := c.execCmd, c.done
	c.mu.Unlock()
	if cmd == nil {
		return nil, errors.New("cmdsource: not opened")
	}

	stdErr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	stdOut, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	c.addEnvVarsFromStruct(cmd, inputProp.Video)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	// send standard error to the log prefixed with (<command> stderr)
	go func() {
		stderrPrefix := fmt.Sprintf("(%s stderr): ", c.cmdArgs[0])
		scanner := bufio.NewScanner(stdErr)
		for scanner.Scan() {
			logger.Debug(stderrPrefix + scanner.Text())
		}
	}()

	frames := make(chan frameResult)
	go func() {
		defer close(frames)
		for {
			buf := make([]byte, frameSize)
			_, err := io.ReadFull(stdOut, buf)
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			select {
			case frames <- frameResult{buf, err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	r := video.ReaderFunc(func() (image.Image, error) {
		var timeout <-chan time.Time
		if c.readTimeout > 0 {
			t := time.NewTimer(c.readTimeout)
			defer t.Stop()
			timeout = t.C
		}

		select {
		case res, ok := <-frames:
			if !ok {
				return nil, io.EOF
			}
			if res.err != nil {
				return nil, res.err
			}
			return decoder.Decode(res.buf, inputProp.Width, inputProp.Height)
		case <-done:
			return nil, io.EOF
		case <-timeout:
			return nil, errReadTimeout
		}
	})

	return r, nil
}
