// Package permission provides camrec.Permission implementations.
package permission

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/camrec/camrec"
)

// Static is a permission whose status never changes.
type Static camrec.PermissionStatus

// Granted is a permission that is always granted.
const Granted = Static(camrec.PermissionGranted)

// Status implements camrec.Permission.
func (s Static) Status() camrec.PermissionStatus { return camrec.PermissionStatus(s) }

// Request implements camrec.Permission.
func (s Static) Request(context.Context) (camrec.PermissionStatus, error) {
	return s.Status(), nil
}

// Func adapts a host prompt to camrec.Permission. The answer is cached: the
// prompt runs at most once successfully.
type Func struct {
	Prompt func(ctx context.Context) (bool, error)

	mu     sync.Mutex
	status camrec.PermissionStatus
}

// Status implements camrec.Permission.
func (f *Func) Status() camrec.PermissionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Request implements camrec.Permission.
func (f *Func) Request(ctx context.Context) (camrec.PermissionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != camrec.PermissionUnknown {
		return f.status, nil
	}

	ok, err := f.Prompt(ctx)
	if err != nil {
		return f.status, err
	}
	f.status = camrec.PermissionDenied
	if ok {
		f.status = camrec.PermissionGranted
	}
	return f.status, nil
}

// Device grants access when the process can open a device node for
// reading and writing, which is what V4L2 capture needs.
type Device struct {
	Path string

	mu     sync.Mutex
	status camrec.PermissionStatus
}

// Status implements camrec.Permission.
func (d *Device) Status() camrec.PermissionStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Request implements camrec.Permission. A missing device leaves the status
// Unknown so a later request can succeed once it is plugged in.
func (d *Device) Request(ctx context.Context) (camrec.PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return d.Status(), err
	}

	f, err := os.OpenFile(d.Path, os.O_RDWR, 0)
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case err == nil:
		_ = f.Close()
		d.status = camrec.PermissionGranted
	case errors.Is(err, os.ErrPermission):
		d.status = camrec.PermissionDenied
	case errors.Is(err, os.ErrNotExist):
		return d.status, err
	default:
		d.status = camrec.PermissionDenied
	}
	return d.status, nil
}

// Dir grants access when the process can create files in a directory,
// which is what saving into a gallery needs.
type Dir struct {
	Path string

	mu     sync.Mutex
	status camrec.PermissionStatus
}

// Status implements camrec.Permission.
func (d *Dir) Status() camrec.PermissionStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Request implements camrec.Permission. A missing directory leaves the
// status Unknown.
func (d *Dir) Request(ctx context.Context) (camrec.PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return d.Status(), err
	}

	f, err := os.CreateTemp(d.Path, ".camrec-access-*")
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case err == nil:
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		d.status = camrec.PermissionGranted
	case errors.Is(err, os.ErrNotExist):
		return d.status, err
	default:
		d.status = camrec.PermissionDenied
	}
	return d.status, nil
}
