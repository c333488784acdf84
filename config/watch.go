package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is how long changes to the same file are coalesced. Editors
// often write a file several times when saving.
const debounce = 100 * time.Millisecond

// Watch calls fn with the path of every watched file that is written or
// recreated, until ctx is done. Directories are watched rather than the
// files themselves, so files replaced by a rename are still seen.
func Watch(ctx context.Context, paths []string, fn func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	files := make(map[string]string, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		files[abs] = p
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	last := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			p, ok := files[abs]
			if !ok {
				continue
			}
			if time.Since(last[abs]) < debounce {
				continue
			}
			last[abs] = time.Now()
			fn(p)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "watcher error", "error", err)
		}
	}
}
