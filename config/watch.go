package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/valentin-kaiser/omniversion/apperror"
)

// Debounce is how long Watch waits for further changes before reloading
var Debounce = 250 * time.Millisecond

// Watch reloads the catalog at path whenever the file changes and passes every
// catalog that loads and validates to onChange. Catalogs that fail to load are
// logged and skipped. Watch returns once the watcher is running; it stops when
// ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Catalog)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return apperror.NewError(apperror.KindUnknown, "creating catalog watcher failed").AddError(err)
	}

	// editors replace files on save, so the directory is watched instead of the file
	dir := filepath.Dir(path)
	err = watcher.Add(dir)
	if err != nil {
		_ = watcher.Close()
		return apperror.NewError(apperror.KindUnknown, "watching catalog directory failed").
			AddError(err).
			AddDetail("path", dir)
	}

	go watch(ctx, watcher, filepath.Clean(path), onChange)
	return nil
}

func watch(ctx context.Context, watcher *fsnotify.Watcher, path string, onChange func(*Catalog)) {
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Error().Err(err).Msg("closing catalog watcher failed")
		}
	}()

	timer := time.NewTimer(Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Str("path", path).Msg("catalog watcher error")
		case <-timer.C:
			c, err := Load(path)
			if err != nil {
				logger.Error().Err(err).Str("path", path).Msg("reloading format catalog failed")
				continue
			}
			logger.Info().Str("path", path).Msg("format catalog reloaded")
			onChange(c)
		}
	}
}
