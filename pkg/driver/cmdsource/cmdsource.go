// Package cmdsource turns the raw frames a child process writes to its
// standard output into a video source.
package cmdsource

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"sync"
	"time"

	"github.com/camrec/camrec/internal/logging"
	"github.com/camrec/camrec/pkg/prop"
	"github.com/google/shlex"
)

var (
	errReadTimeout    = errors.New("read timeout")
	errInvalidCommand = errors.New("invalid command")
)

var logger = logging.NewLogger("camrec/driver/cmdsource")

// closeTimeout is how long a command gets to exit after SIGINT before it is
// killed.
const closeTimeout = 3 * time.Second

type cmdSource struct {
	cmdArgs     []string
	props       []prop.Media
	readTimeout time.Duration

	mu      sync.Mutex
	execCmd *exec.Cmd
	done    chan struct{}
}

func newCmdSource(command string, mediaProperties []prop.Media, readTimeout time.Duration) (*cmdSource, error) {
	// split command string on whitespace, respecting quotes & comments
	cmdArgs, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCommand, err)
	}
	if len(cmdArgs) == 0 || cmdArgs[0] == "" {
		return nil, errInvalidCommand
	}
	return &cmdSource{
		cmdArgs:     cmdArgs,
		props:       mediaProperties,
		readTimeout: readTimeout,
	}, nil
}

func (c *cmdSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.execCmd = exec.Command(c.cmdArgs[0], c.cmdArgs[1:]...)
	c.done = make(chan struct{})
	return nil
}

func (c *cmdSource) Close() error {
	c.mu.Lock()
	cmd, done := c.execCmd, c.done
	c.execCmd, c.done = nil, nil
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = cmd.Process.Signal(os.Interrupt)
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	select {
	case err := <-exited:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Interrupted on purpose, the exit status carries no news.
			return nil
		}
		return err
	case <-time.After(closeTimeout):
		logger.Warnf("%s did not exit after interrupt, killing it", c.cmdArgs[0])
		return cmd.Process.Kill()
	}
}

func (c *cmdSource) Properties() []prop.Media {
	return c.props
}

// addEnvVarsFromStruct exposes every field of props to the command as
// CAMREC_<Field>, so a command line can adapt to the selected mode.
func (c *cmdSource) addEnvVarsFromStruct(cmd *exec.Cmd, props interface{}) {
	cmd.Env = os.Environ() // inherit environment variables
	values := reflect.ValueOf(props)
	types := values.Type()
	for i := 0; i < values.NumField(); i++ {
		envVar := fmt.Sprintf("CAMREC_%s=%v", types.Field(i).Name, values.Field(i))
		logger.Debugf("%s: %s", c.cmdArgs[0], envVar)
		cmd.Env = append(cmd.Env, envVar)
	}
}
