package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce groups bursts of filesystem events into one notification
const DefaultWatchDebounce = 500 * time.Millisecond

// watchMaxWaitFactor bounds how long a continuous stream of events can hold
// back a notification, as a multiple of the debounce.
const watchMaxWaitFactor = 4

// WatchDirectory calls notify after changes to the entries of dir. Events
// arriving within debounce of each other produce a single notification, and
// a pending change is reported no later than four debounce periods after it
// was first seen even while events keep arriving.
// It blocks until ctx is cancelled.
func WatchDirectory(ctx context.Context, dir string, debounce time.Duration, notify func()) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	slog.Info("Started watching directory", "path", dir)

	maxWait := watchMaxWaitFactor * debounce
	timer := time.NewTimer(debounce)
	timer.Stop()
	// first event not yet reported, zero when nothing is pending
	var pendingSince time.Time

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Stopping directory watcher", "path", dir)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			// Only changes to the set of entries or their content matter
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Write) {
				slog.Debug("Directory change detected", "path", event.Name, "op", event.Op.String())
				now := time.Now()
				if pendingSince.IsZero() {
					pendingSince = now
				}
				timer.Reset(min(debounce, max(0, maxWait-now.Sub(pendingSince))))
			}

		case <-timer.C:
			pendingSince = time.Time{}
			notify()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			slog.Error("File watcher error", "path", dir, "error", err)
		}
	}
}
