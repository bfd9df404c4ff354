package driver

import (
	"errors"
	"sort"
	"sync"
)

var errUnsupportedAdapter = errors.New("adapter has to implement VideoRecorder")

// FilterFn is being used to decide if a driver should be included in the
// query result.
type FilterFn func(Driver) bool

// FilterVideoRecorder returns a filter, which will only include drivers
// that can record video.
func FilterVideoRecorder() FilterFn {
	return func(d Driver) bool {
		_, ok := d.(VideoRecorder)
		return ok
	}
}

// FilterID returns a filter, which will only include the driver with id.
func FilterID(id string) FilterFn {
	return func(d Driver) bool {
		return d.ID() == id
	}
}

// FilterName returns a filter, which will only include drivers located at name.
func FilterName(name string) FilterFn {
	return func(d Driver) bool {
		return d.Info().Name == name
	}
}

// FilterDeviceType returns a filter, which will only include drivers of t.
func FilterDeviceType(t DeviceType) FilterFn {
	return func(d Driver) bool {
		return d.Info().DeviceType == t
	}
}

// FilterAnd returns a filter, which will include a driver if all filters
// include it.
func FilterAnd(filters ...FilterFn) FilterFn {
	return func(d Driver) bool {
		for _, f := range filters {
			if !f(d) {
				return false
			}
		}
		return true
	}
}

// FilterNot returns a filter, which negates filter.
func FilterNot(filter FilterFn) FilterFn {
	return func(d Driver) bool {
		return !filter(d)
	}
}

// Manager is a singleton to manage multiple drivers and their states
type Manager struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

var manager = NewManager()

// GetManager gets manager singleton instance
func GetManager() *Manager {
	return manager
}

// NewManager creates an empty Manager. Most callers want GetManager; a
// private Manager keeps tests away from the drivers registered at init.
func NewManager() *Manager {
	return &Manager{drivers: make(map[string]Driver)}
}

// Register wraps a with a new Driver and stores it. It returns the new
// driver's ID.
func (m *Manager) Register(a Adapter, info Info) (string, error) {
	d := wrapAdapter(a, info)
	if d == nil {
		return "", errUnsupportedAdapter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.ID()] = d
	return d.ID(), nil
}

// Unregister removes the driver with id and closes it. It reports whether
// the driver was registered.
func (m *Manager) Unregister(id string) bool {
	m.mu.Lock()
	d, ok := m.drivers[id]
	delete(m.drivers, id)
	m.mu.Unlock()

	if ok && d.Status() != StateClosed {
		_ = d.Close()
	}
	return ok
}

// Query queries by using f to filter drivers, and simply return the filtered results.
// Results are sorted by label so listings are stable.
func (m *Manager) Query(f FilterFn) []Driver {
	m.mu.RLock()
	results := make([]Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		if f(d) {
			results = append(results, d)
		}
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Info().Label != results[j].Info().Label {
			return results[i].Info().Label < results[j].Info().Label
		}
		return results[i].ID() < results[j].ID()
	})
	return results
}
