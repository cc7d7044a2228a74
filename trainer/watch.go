package trainer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"soupcast/logger"
)

// DefaultSettle is how long the history file must stay quiet before a
// retrain starts. Spreadsheet exports usually arrive as several writes.
const DefaultSettle = 500 * time.Millisecond

// Watch calls retrain every time the file at path is written or replaced,
// until ctx is cancelled. Runs never overlap; a failed run is logged and
// watching continues.
func Watch(ctx context.Context, path string, settle time.Duration, retrain func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	logger.Infof("watching %s for changes", target)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debugf("history changed: %s", event)
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(settle)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("watch error: %v", err)
		case <-fire:
			fire = nil
			if err := retrain(); err != nil {
				logger.Errorf("retrain failed: %v", err)
			}
		}
	}
}
