package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it is written and hands the new
// config to onChange. Invalid files are logged and skipped. The watch stops
// when ctx is cancelled.
func Watch(ctx context.Context, configPath string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	target := filepath.Clean(configPath)

	// Watch the directory, not just the file: editors often replace the file
	// with a rename, which drops a watch held on the file itself.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(event.Name) != target {
					continue
				}

				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				slog.Info("config file modified, reloading", "path", target)

				newConfig, err := Load(configPath)
				if err != nil {
					slog.Error("failed to reload config", "path", target, "err", err)
					continue
				}

				onChange(newConfig)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "err", err)
			}
		}
	}()

	return nil
}
