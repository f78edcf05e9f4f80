package daemon

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neozepron/dmOverlay/internal/config"
)

func TestConfigWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dmoverlayd.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	w, err := NewConfigWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var reloaded []*config.DaemonConfig
	w.SetReloadCallback(func(c *config.DaemonConfig) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = append(reloaded, c)
	})

	initial := config.DefaultDaemonConfig()
	require.NoError(t, w.Start(initial))
	assert.Same(t, initial, w.Current())

	require.NoError(t, os.WriteFile(path, []byte("[display]\nwidth = 400\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloaded) > 0
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	got := reloaded[len(reloaded)-1]
	mu.Unlock()
	assert.Equal(t, 400, got.Display.Width)
	assert.Same(t, got, w.Current())
}

func TestConfigWatcherKeepsOldConfigOnInvalidChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dmoverlayd.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	w, err := NewConfigWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var errs []error
	w.SetErrorCallback(func(e error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, e)
	})

	initial := config.DefaultDaemonConfig()
	require.NoError(t, w.Start(initial))

	// Out-of-range width fails validation.
	require.NoError(t, os.WriteFile(path, []byte("[display]\nwidth = 5\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 3*time.Second, 10*time.Millisecond)

	assert.Same(t, initial, w.Current())
}
