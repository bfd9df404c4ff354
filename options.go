package camrec

import (
	"time"

	"github.com/camrec/camrec/internal/logging"
	plogging "github.com/pion/logging"
)

// ControllerOptions stores parameters used by Controller.
type ControllerOptions struct {
	permission      Permission
	mediaPermission Permission
	store           MediaStore
	loggerFactory   plogging.LoggerFactory
	resolution      string
	saveTimeout     time.Duration
}

// ControllerOption is a type of Controller functional option.
type ControllerOption func(*ControllerOptions)

// WithPermission gates Start on p being granted. Without it the camera is
// assumed to be accessible.
func WithPermission(p Permission) ControllerOption {
	return func(o *ControllerOptions) {
		o.permission = p
	}
}

// WithMediaStore saves every finished clip into s.
func WithMediaStore(s MediaStore) ControllerOption {
	return func(o *ControllerOptions) {
		o.store = s
	}
}

// WithMediaPermission gates saving into the media store on p being
// granted. An Unknown status is requested before the first save.
func WithMediaPermission(p Permission) ControllerOption {
	return func(o *ControllerOptions) {
		o.mediaPermission = p
	}
}

// WithLoggerFactory replaces the logger factory.
func WithLoggerFactory(f plogging.LoggerFactory) ControllerOption {
	return func(o *ControllerOptions) {
		o.loggerFactory = f
	}
}

// WithResolution sets the initially selected resolution label.
func WithResolution(label string) ControllerOption {
	return func(o *ControllerOptions) {
		o.resolution = label
	}
}

// WithSaveTimeout bounds each MediaStore.Save call. Zero means no bound.
func WithSaveTimeout(d time.Duration) ControllerOption {
	return func(o *ControllerOptions) {
		o.saveTimeout = d
	}
}

func defaultControllerOptions() ControllerOptions {
	return ControllerOptions{
		loggerFactory: logging.Factory(),
		resolution:    DefaultResolution,
	}
}
