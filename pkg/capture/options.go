package capture

import (
	"os"
	"time"

	"github.com/camrec/camrec/internal/logging"
	"github.com/camrec/camrec/pkg/driver"
	"github.com/camrec/camrec/pkg/io/video"
	plogging "github.com/pion/logging"
)

// DeviceOptions stores parameters used by Device.
type DeviceOptions struct {
	// Dir receives the clips. Defaults to os.TempDir().
	Dir string
	// Scaler resizes frames whose size differs from the requested format.
	Scaler        video.Scaler
	Manager       *driver.Manager
	LoggerFactory plogging.LoggerFactory

	now func() time.Time
}

// DeviceOption is a type of Device functional option.
type DeviceOption func(*DeviceOptions)

// WithOutputDir writes clips into dir.
func WithOutputDir(dir string) DeviceOption {
	return func(o *DeviceOptions) {
		o.Dir = dir
	}
}

// WithScaler selects the scaling algorithm.
func WithScaler(s video.Scaler) DeviceOption {
	return func(o *DeviceOptions) {
		o.Scaler = s
	}
}

// WithManager sets the manager the driver is registered with. Ready reports
// the device as gone once the driver is no longer registered there.
func WithManager(m *driver.Manager) DeviceOption {
	return func(o *DeviceOptions) {
		o.Manager = m
	}
}

// WithLoggerFactory replaces the logger factory.
func WithLoggerFactory(f plogging.LoggerFactory) DeviceOption {
	return func(o *DeviceOptions) {
		o.LoggerFactory = f
	}
}

func defaultDeviceOptions() DeviceOptions {
	return DeviceOptions{
		Dir:           os.TempDir(),
		Scaler:        video.ScalerApproxBiLinear,
		Manager:       driver.GetManager(),
		LoggerFactory: logging.Factory(),
		now:           time.Now,
	}
}
