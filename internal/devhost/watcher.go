package devhost

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// debounceDelay waits for a rebuild to finish writing before reloading.
const debounceDelay = 250 * time.Millisecond

// WatchPlugin calls reload whenever the plugin binary at path is written or
// replaced, until ctx is done. The parent directory is watched because build
// tools usually replace the binary rather than write it in place.
func WatchPlugin(ctx context.Context, path string, reload func() error, logger hclog.Logger) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create plugin watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(absPath)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	logger = logger.Named("watcher").With("path", absPath)
	logger.Info("watching plugin for changes")

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != absPath || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			logger.Trace("plugin changed", "op", ev.Op.String())

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				if err := reload(); err != nil {
					logger.Error("failed to reload plugin", "error", err)
					return
				}
				logger.Info("reloaded plugin")
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("plugin watcher failed", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
