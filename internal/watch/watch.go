// Package watch reports writes to a fixed set of files using fsnotify.
//
// The parent directory of each file is watched rather than the file itself so
// editors that save atomically (write temp file, rename over the original)
// keep being observed after the original inode disappears.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 200 * time.Millisecond

// Files calls onChange with the cleaned path of a watched file each time it is
// written or (re)created. Events for the same file closer together than
// debounce are collapsed into one call. Files blocks until ctx is cancelled.
//
// onChange runs on the watcher goroutine; a slow callback delays later events.
func Files(ctx context.Context, paths []string, debounce time.Duration, onChange func(path string)) error {
	if len(paths) == 0 {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: new watcher: %w", err)
	}
	defer watcher.Close()

	wanted := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("watch: resolve %q: %w", p, err)
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("watch: add %q: %w", d, err)
		}
	}

	slog.Info("watch: watching files", "count", len(wanted))

	// pending holds files with an event not yet delivered.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounceTick(debounce))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Clean(event.Name)
			if !wanted[name] {
				continue
			}
			pending[name] = time.Now()

		case now := <-ticker.C:
			for name, at := range pending {
				if now.Sub(at) < debounce {
					continue
				}
				delete(pending, name)
				slog.Debug("watch: file changed", "path", name)
				onChange(name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watch: watcher error", "err", err)
		}
	}
}

func debounceTick(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Millisecond
	}
	return d / 2
}
