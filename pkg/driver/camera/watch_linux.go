package camera

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/camrec/camrec/pkg/driver"
	"github.com/fsnotify/fsnotify"
)

type deviceWatcher struct {
	m       *driver.Manager
	byPath  string
	watcher *fsnotify.Watcher
}

// Watch registers cameras plugged in after init and unregisters removed
// ones until ctx is done.
func Watch(ctx context.Context) error {
	w, err := newDeviceWatcher(driver.GetManager(), devDir, byPathPattern)
	if err != nil {
		return err
	}
	return w.run(ctx)
}

func newDeviceWatcher(m *driver.Manager, dir, byPath string) (*deviceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &deviceWatcher{m: m, byPath: byPath, watcher: watcher}, nil
}

func (w *deviceWatcher) run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("device watcher: %v", err)
		}
	}
}

func (w *deviceWatcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if !strings.HasPrefix(filepath.Base(path), "video") {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if !isDeviceNode(path) {
			return
		}
		if err := register(w.m, path, labelFor(path, w.byPath)); err != nil {
			logger.Warnf("failed to register %s: %v", path, err)
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		for _, d := range w.m.Query(driver.FilterName(path)) {
			if w.m.Unregister(d.ID()) {
				logger.Infof("camera %s removed", d.Info().Label)
			}
		}
	}
}
