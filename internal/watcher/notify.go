package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evangambit/Gamgee/internal/metrics"
)

// Notifier is the fsnotify-backed Watcher. It keeps the poller's contract:
// files already present (or newly created) are recorded silently, and a write
// to a known file fires the callback.
type Notifier struct {
	opts     Options
	exts     extensionSet
	callback Callback

	// Owned by the Run goroutine.
	seen    map[string]time.Time
	pending map[string]*time.Timer
	settled chan string

	stopOnce sync.Once
	done     chan struct{}
}

func NewNotifier(opts Options, callback Callback) *Notifier {
	opts = opts.withDefaults()
	return &Notifier{
		opts:     opts,
		exts:     newExtensionSet(opts.Extensions),
		callback: callback,
		seen:     make(map[string]time.Time),
		pending:  make(map[string]*time.Timer),
		settled:  make(chan string, 64),
		done:     make(chan struct{}),
	}
}

func (n *Notifier) Stop() {
	n.stopOnce.Do(func() { close(n.done) })
}

// Run returns an error only when the fsnotify watcher cannot be created.
// If the root cannot be registered it retries after Backoff.
func (n *Notifier) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	defer n.stopTimers()
	// Releases debounce timers blocked on settled after a ctx exit.
	defer n.Stop()

	n.opts.Logger.Info("watching for changes", "root", n.opts.Root, "mode", "notify")

	for {
		err := n.addTree(fsw, n.opts.Root)
		n.opts.OnStatus(err)
		if err == nil {
			break
		}
		metrics.ObserveScanError()
		n.opts.Logger.Error("watch registration failed", "root", n.opts.Root, "err", err, "retry_in", n.opts.Backoff)
		if !sleep(ctx, n.done, n.opts.Backoff) {
			return nil
		}
	}
	metrics.ObserveScan(len(n.seen))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.done:
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			n.handle(fsw, event)

		case path := <-n.settled:
			delete(n.pending, path)
			n.evaluate(path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			metrics.ObserveScanError()
			n.opts.Logger.Warn("fsnotify error", "err", err)
		}
	}
}

// addTree registers every directory under root and records the tracked
// files it finds.
func (n *Notifier) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				n.opts.Logger.Warn("cannot watch directory", "path", path, "err", err)
			}
			return nil
		}
		if modTime, ok := n.stat(path); ok {
			if _, known := n.seen[path]; !known {
				n.seen[path] = modTime
			}
		}
		return nil
	})
}

// stat returns the modification time of a tracked regular file.
func (n *Notifier) stat(path string) (time.Time, bool) {
	if !n.exts.matches(path) {
		return time.Time{}, false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func (n *Notifier) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := n.addTree(fsw, path); err != nil {
				n.opts.Logger.Warn("cannot watch new directory", "path", path, "err", err)
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !n.exts.matches(path) {
		return
	}
	n.schedule(path)
}

// schedule evaluates path once its event burst has been quiet for Debounce,
// so create+write of a new file counts as a single first sighting.
func (n *Notifier) schedule(path string) {
	if timer, ok := n.pending[path]; ok {
		timer.Reset(n.opts.Debounce)
		return
	}
	n.pending[path] = time.AfterFunc(n.opts.Debounce, func() {
		select {
		case n.settled <- path:
		case <-n.done:
		}
	})
}

func (n *Notifier) stopTimers() {
	for path, timer := range n.pending {
		timer.Stop()
		delete(n.pending, path)
	}
}

func (n *Notifier) evaluate(path string) {
	modTime, ok := n.stat(path)
	if !ok {
		return
	}

	previous, seen := n.seen[path]
	if !seen {
		n.seen[path] = modTime
		return
	}
	if previous.Equal(modTime) {
		return
	}

	n.opts.Logger.Info("file changed", "path", path)
	metrics.ObserveChange()
	if n.callback != nil {
		n.callback(Change{Path: path, Previous: previous, Current: modTime})
	}
	n.seen[path] = modTime
}
