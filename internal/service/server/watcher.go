package server

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/installer-endpoint/internal/logger"
)

// watchScript watches the directory of path and calls onChange whenever the
// script itself is created, written, removed or renamed. The returned channel
// is closed once the watcher has stopped, which happens when ctx is done.
func watchScript(ctx context.Context, path string, onChange func(context.Context)) (<-chan struct{}, error) {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// The directory is watched so that a script deployed after startup is seen.
	if err = w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	ctx = logger.WithKV(ctx, "script", path)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() { _ = w.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}

				if filepath.Clean(event.Name) != path {
					continue
				}

				switch {
				case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
					logger.Info(ctx, "Script updated")
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					logger.Warn(ctx, "Script removed")
				default:
					continue
				}

				onChange(ctx)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}

				logger.WarnKV(ctx, "Error watching script", "error", err)
			}
		}
	}()

	return done, nil
}
