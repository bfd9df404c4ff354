package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/camrec/camrec"
	"github.com/camrec/camrec/internal/config"
	"github.com/camrec/camrec/pkg/capture"
	"github.com/camrec/camrec/pkg/driver"
	"github.com/camrec/camrec/pkg/driver/cmdsource"
	"github.com/camrec/camrec/pkg/frame"
	"github.com/camrec/camrec/pkg/permission"
	"github.com/camrec/camrec/pkg/prop"
)

const videoTestLabel = "VideoTest"

// sourceFilter returns the drivers cfg.Source may record from.
func sourceFilter(c config.Config) (driver.FilterFn, error) {
	switch c.Source {
	case config.SourceCamera:
		return driver.FilterAnd(
			driver.FilterDeviceType(driver.Camera),
			func(d driver.Driver) bool { return d.Info().Name != "" },
			deviceFilter(c.Device),
		), nil

	case config.SourceVideoTest:
		return func(d driver.Driver) bool { return d.Info().Label == videoTestLabel }, nil

	case config.SourceCommand:
		props := []prop.Media{{
			Video: prop.Video{
				Width:       c.Command.Width,
				Height:      c.Command.Height,
				FrameRate:   c.Command.FrameRate,
				FrameFormat: frame.Format(c.Command.FrameFormat),
			},
		}}
		id, err := cmdsource.AddVideoCmdSource("command", c.Command.Line, props, c.Command.ReadTimeout)
		if err != nil {
			return nil, fmt.Errorf("add command source: %w", err)
		}
		return driver.FilterID(id), nil

	default:
		return nil, fmt.Errorf("unknown source %q", c.Source)
	}
}

// deviceFilter matches drivers whose label or name contains s.
func deviceFilter(s string) driver.FilterFn {
	return func(d driver.Driver) bool {
		info := d.Info()
		return s == "" || strings.Contains(info.Label, s) || strings.Contains(info.Name, s)
	}
}

// selectDevice picks the best driver for the configured resolution and
// wraps it for capture.
func selectDevice(c config.Config, filter driver.FilterFn) (*capture.Device, error) {
	format, _ := camrec.FormatFor(c.Resolution)
	d, err := capture.SelectVideo(filter, format)
	if err != nil {
		return nil, err
	}
	return capture.NewDevice(d, capture.WithOutputDir(c.OutputDir))
}

// newPermission builds the permission for dev. Only cameras have a device
// node to check, other sources are always accessible in device mode.
func newPermission(c config.Config, dev *capture.Device, ask askFunc) camrec.Permission {
	switch c.Permission {
	case config.PermissionPrompt:
		return &permission.Func{Prompt: func(ctx context.Context) (bool, error) {
			return ask(ctx, fmt.Sprintf("Allow camrec to use %s?", dev.Driver().Info().Label))
		}}
	case config.PermissionDevice:
		if info := dev.Driver().Info(); info.DeviceType == driver.Camera && info.Name != "" {
			return &permission.Device{Path: info.Name}
		}
	}
	return permission.Granted
}
