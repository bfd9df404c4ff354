package camera

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/camrec/camrec/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchHotplug(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	m := driver.NewManager()
	w, err := newDeviceWatcher(m, dir, filepath.Join(dir, "by-path", "*"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx) }()

	node := filepath.Join(dir, "video2")
	require.NoError(t, os.WriteFile(node, nil, 0644))
	// Unrelated entries are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "null"), nil, 0644))

	require.Eventually(t, func() bool {
		return len(m.Query(driver.FilterName(node))) == 1
	}, 5*time.Second, 10*time.Millisecond)

	drvs := m.Query(driver.FilterDeviceType(driver.Camera))
	require.Len(t, drvs, 1)
	assert.Equal(t, "video2;video2", drvs[0].Info().Label)

	require.NoError(t, os.Remove(node))
	require.Eventually(t, func() bool {
		return len(m.Query(driver.FilterName(node))) == 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
