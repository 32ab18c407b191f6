package store

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFixtures resets s from the fixture file at path every time it changes.
//
// The parent directory is watched so editors that replace the file atomically
// are handled. A fixture file that fails to parse is logged and the previous
// contents are kept. onReload, if not nil, is called after each successful
// reset. The watcher stops when ctx is done.
func WatchFixtures(ctx context.Context, path string, s *Store, onReload func(*Fixtures)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	target := abs
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				f, err := LoadFixtures(target)
				if err != nil {
					slog.WarnContext(ctx, "Failed to reload fixtures", "path", target, "err", err)
					continue
				}
				s.Reset(f)
				slog.InfoContext(ctx, "Fixtures reloaded", "path", target, "collections", len(f.Collections))
				if onReload != nil {
					onReload(f)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching fixtures", "err", err)
			}
		}
	}()
	return nil
}
