package registry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"verisyntra.org/internal/obs"
)

// Watch reloads the registry whenever its snapshot file changes on disk.
// Events are debounced because editors and atomic-rename writers produce
// bursts. Blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: rename-based writes replace the
	// inode and a file watch would go stale after the first reload.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return err
	}

	target := filepath.Base(r.path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			obs.Warn("registry watch error", map[string]any{"error": err.Error()})
		case <-timerC:
			timer = nil
			timerC = nil
			if err := r.Reload(); err != nil {
				obs.Error("registry reload failed", map[string]any{
					"path":  r.path,
					"error": err.Error(),
				})
				continue
			}
			obs.Info("registry reloaded", map[string]any{
				"path":  r.path,
				"total": r.Stats().Total,
			})
		}
	}
}
