package devhost

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchPlugin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin")
	other := filepath.Join(dir, "other")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0755))

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchPlugin(ctx, path, func() error {
			reloads.Add(1)
			return nil
		}, nil)
	}()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	time.Sleep(2 * debounceDelay)
	assert.Zero(t, reloads.Load())

	assert.Eventually(t, func() bool {
		// keep writing until the watcher has been registered
		os.WriteFile(path, []byte("v2"), 0755)
		return reloads.Load() > 0
	}, 5*time.Second, 2*debounceDelay)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchPlugin_MissingDirectory(t *testing.T) {
	err := WatchPlugin(context.Background(), filepath.Join(t.TempDir(), "missing", "plugin"), func() error { return nil }, nil)
	assert.ErrorContains(t, err, "failed to watch")
}
