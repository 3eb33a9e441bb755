package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the catalog whenever the content file is written. The new
// snapshot is built fully before it is swapped in, so in-flight detections
// keep reading the old one. Watching stops when ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	c.logger.Info("watching catalog file for changes", slog.String("path", path))

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("catalog watch stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				c.logger.Info("catalog file changed, reloading", slog.String("path", event.Name))
				if err := c.Load(path); err != nil {
					// Keep serving the previous snapshot.
					c.logger.Error("catalog reload failed",
						slog.String("error", err.Error()),
						slog.String("path", path))
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Error("catalog watch error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}
