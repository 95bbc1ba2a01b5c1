package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"depsweep-go/pkg/logger"
)

// Watcher observes a drop folder for incoming project archives.
type Watcher struct {
	monitorDir string
	log        *logger.Logger
}

// NewWatcher creates a watcher over monitorDir, creating it if needed.
func NewWatcher(monitorDir string) (*Watcher, error) {
	if err := os.MkdirAll(monitorDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create monitor directory: %w", err)
	}
	return &Watcher{
		monitorDir: monitorDir,
		log:        logger.GetLogger().WithField("component", "watcher"),
	}, nil
}

// WaitForArchive blocks until a .zip file appears in the monitored
// directory and returns its path. Archives already present when the wait
// starts are returned immediately.
func (w *Watcher) WaitForArchive(ctx context.Context) (string, error) {
	// Sweep first: a file dropped before the watch was registered would
	// otherwise never produce an event.
	if path, ok := w.findExistingArchive(); ok {
		return path, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.monitorDir); err != nil {
		return "", fmt.Errorf("failed to watch %s: %w", w.monitorDir, err)
	}

	w.log.WithField("dir", w.monitorDir).Info("Monitoring for ZIP archives")

	// Second sweep closes the race between the first sweep and Add.
	if path, ok := w.findExistingArchive(); ok {
		return path, nil
	}

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return "", fmt.Errorf("watch channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if strings.HasSuffix(strings.ToLower(event.Name), ".zip") {
				w.log.WithField("archive", event.Name).Info("Found ZIP archive")
				return event.Name, nil
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return "", fmt.Errorf("watch channel closed")
			}
			w.log.WithError(err).Warn("Watcher error")
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (w *Watcher) findExistingArchive() (string, bool) {
	entries, err := os.ReadDir(w.monitorDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".zip") {
			return filepath.Join(w.monitorDir, e.Name()), true
		}
	}
	return "", false
}
