// Package config loads the camrec command configuration. Values come from
// defaults, then an optional YAML file, then CAMREC_* environment
// variables, each overriding the previous.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/camrec/camrec"
	"github.com/camrec/camrec/internal/logging"
	"github.com/camrec/camrec/pkg/frame"
	"gopkg.in/yaml.v3"
)

var logger = logging.NewLogger("camrec/config")

// Video sources.
const (
	SourceCamera    = "camera"
	SourceVideoTest = "videotest"
	SourceCommand   = "command"
)

// Permission modes.
const (
	PermissionGranted = "granted"
	PermissionDevice  = "device"
	PermissionPrompt  = "prompt"
)

// Config is the command configuration.
type Config struct {
	// OutputDir receives clips while they are recorded.
	OutputDir string `yaml:"outputDir"`
	// GalleryDir is the media library finished clips are saved into.
	GalleryDir string `yaml:"galleryDir"`
	Resolution string `yaml:"resolution"`
	Source     string `yaml:"source"`
	// Device restricts the source to drivers whose label or name contains it.
	Device     string        `yaml:"device"`
	Command    CommandConfig `yaml:"command"`
	Permission string        `yaml:"permission"`
	LogLevel   string        `yaml:"logLevel"`
	// MetricsAddr enables the /metrics endpoint when set.
	MetricsAddr string        `yaml:"metricsAddr"`
	SaveTimeout time.Duration `yaml:"saveTimeout"`
}

// CommandConfig describes a command source. The command writes raw frames
// of the given format to its standard output.
type CommandConfig struct {
	Line        string        `yaml:"line"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	FrameRate   float32       `yaml:"frameRate"`
	FrameFormat string        `yaml:"frameFormat"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	dataDir := filepath.Join(os.TempDir(), "camrec")
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, "Videos", "camrec")
	}
	return Config{
		OutputDir:   filepath.Join(os.TempDir(), "camrec"),
		GalleryDir:  dataDir,
		Resolution:  camrec.DefaultResolution,
		Source:      SourceCamera,
		Permission:  PermissionDevice,
		LogLevel:    "info",
		SaveTimeout: 30 * time.Second,
		Command: CommandConfig{
			FrameFormat: string(frame.FormatI420),
			FrameRate:   30,
			ReadTimeout: 5 * time.Second,
		},
	}
}

// Loader loads a Config from a file and the environment.
type Loader struct {
	path   string
	lookup func(string) (string, bool)
}

// NewLoader creates a loader reading path, which may be empty, and the
// process environment.
func NewLoader(path string) *Loader {
	return &Loader{path: path, lookup: os.LookupEnv}
}

// Load loads with precedence ENV > file > defaults and validates the result.
func Load(path string) (Config, error) {
	return NewLoader(path).Load()
}

// Load builds and validates the configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		if err := l.loadFile(&cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.mergeEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file over cfg. Unknown fields are rejected.
func (l *Loader) loadFile(cfg *Config) error {
	path := filepath.Clean(l.path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	logger.Debugf("loaded %s", path)
	return nil
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	logger.Debugf("%s set from environment", key)
	return v, true
}

func (l *Loader) mergeEnv(cfg *Config) error {
	strs := map[string]*string{
		"CAMREC_OUTPUT_DIR":   &cfg.OutputDir,
		"CAMREC_GALLERY_DIR":  &cfg.GalleryDir,
		"CAMREC_RESOLUTION":   &cfg.Resolution,
		"CAMREC_SOURCE":       &cfg.Source,
		"CAMREC_DEVICE":       &cfg.Device,
		"CAMREC_COMMAND":      &cfg.Command.Line,
		"CAMREC_PERMISSION":   &cfg.Permission,
		"CAMREC_LOG_LEVEL":    &cfg.LogLevel,
		"CAMREC_METRICS_ADDR": &cfg.MetricsAddr,
	}
	for key, dst := range strs {
		if v, ok := l.env(key); ok {
			*dst = v
		}
	}

	if v, ok := l.env("CAMREC_SAVE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CAMREC_SAVE_TIMEOUT: %w", err)
		}
		cfg.SaveTimeout = d
	}
	return nil
}

// Validate checks cfg for values the command can't run with.
func Validate(cfg Config) error {
	var errs []error

	if _, ok := camrec.FormatFor(cfg.Resolution); !ok {
		errs = append(errs, fmt.Errorf("resolution %q: must be one of %s", cfg.Resolution, strings.Join(camrec.Resolutions(), ", ")))
	}
	if cfg.OutputDir == "" {
		errs = append(errs, errors.New("outputDir: must not be empty"))
	}
	if cfg.SaveTimeout < 0 {
		errs = append(errs, errors.New("saveTimeout: must not be negative"))
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logLevel: %w", err))
	}

	switch cfg.Permission {
	case PermissionGranted, PermissionDevice, PermissionPrompt:
	default:
		errs = append(errs, fmt.Errorf("permission %q: must be granted, device or prompt", cfg.Permission))
	}

	switch cfg.Source {
	case SourceCamera, SourceVideoTest:
	case SourceCommand:
		errs = append(errs, validateCommand(cfg.Command)...)
	default:
		errs = append(errs, fmt.Errorf("source %q: must be camera, videotest or command", cfg.Source))
	}

	return errors.Join(errs...)
}

func validateCommand(c CommandConfig) []error {
	var errs []error
	if strings.TrimSpace(c.Line) == "" {
		errs = append(errs, errors.New("command.line: required for the command source"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("command: invalid size %dx%d", c.Width, c.Height))
	}
	if c.FrameRate <= 0 {
		errs = append(errs, errors.New("command.frameRate: must be positive"))
	}
	if _, err := frame.Size(frame.Format(c.FrameFormat), c.Width, c.Height); err != nil {
		errs = append(errs, fmt.Errorf("command.frameFormat: %w", err))
	}
	return errs
}
