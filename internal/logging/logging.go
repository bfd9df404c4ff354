// Package logging hands out the leveled loggers used across camrec.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pion/logging"
)

type levelSetter interface {
	SetLevel(logging.LogLevel)
}

var (
	mu            sync.Mutex
	loggerFactory = logging.NewDefaultLoggerFactory()
	created       []scopedLogger
)

type scopedLogger struct {
	scope string
	levelSetter
}

// NewLogger creates a logger for scope. Loggers follow later SetLevel calls.
func NewLogger(scope string) logging.LeveledLogger {
	mu.Lock()
	defer mu.Unlock()

	l := loggerFactory.NewLogger(scope)
	if s, ok := l.(levelSetter); ok {
		created = append(created, scopedLogger{scope, s})
	}
	return l
}

// Factory returns a LoggerFactory backed by NewLogger.
func Factory() logging.LoggerFactory {
	return factoryFunc(NewLogger)
}

type factoryFunc func(string) logging.LeveledLogger

func (f factoryFunc) NewLogger(scope string) logging.LeveledLogger { return f(scope) }

// SetOutput redirects loggers created after the call to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	loggerFactory.Writer = w
}

// SetLevel parses level and applies it to every logger, existing or future.
// PION_LOG_* environment variables still win for the scopes they name.
func SetLevel(level string) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	loggerFactory.DefaultLogLevel = l
	for _, s := range created {
		if _, pinned := loggerFactory.ScopeLevels[s.scope]; pinned {
			continue
		}
		s.SetLevel(l)
	}
	return nil
}

// ParseLevel converts a level name such as "debug" to a logging.LogLevel.
func ParseLevel(level string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "", "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", level)
	}
}
