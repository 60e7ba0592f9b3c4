package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"outliner-cli/internal/logging"
)

// DefaultDebounce is how long a file must be quiet before Watch reacts.
const DefaultDebounce = 200 * time.Millisecond

// Watch calls fn each time path changes on disk and then stays unchanged for
// debounce. The parent directory is watched rather than the file so atomic
// saves (write temp, rename over) are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, log *slog.Logger, fn func()) error {
	log = logging.OrDiscard(log)
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			fn()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are logged but don't stop the watch.
			log.Warn("watch error", "path", abs, "err", err)
		}
	}
}
