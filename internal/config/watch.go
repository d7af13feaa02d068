package config

import (
	"context"
	"log/slog"

	"github.com/openeurope/energyaudit/internal/watch"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file is written. It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the
// previous config remains active; onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	slog.Info("config: watching for changes", "path", path)
	return watch.Files(ctx, []string{path}, watch.DefaultDebounce, func(string) {
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config",
				"path", path, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", path)
		onChange(cfg)
	})
}
