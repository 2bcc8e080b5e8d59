package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evangambit/Gamgee/internal/metrics"
)

// Poller detects changes by rescanning the tree every Interval and
// comparing modification times. The entries map belongs to the goroutine
// running Run (or Scan); nothing else touches it.
type Poller struct {
	opts     Options
	exts     extensionSet
	callback Callback

	entries map[string]time.Time
	tracked atomic.Int64

	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

func NewPoller(opts Options, callback Callback) *Poller {
	opts = opts.withDefaults()
	return &Poller{
		opts:     opts,
		exts:     newExtensionSet(opts.Extensions),
		callback: callback,
		entries:  make(map[string]time.Time),
		done:     make(chan struct{}),
	}
}

// Run scans until Stop is called or ctx is done. A failed scan is logged and
// retried after Backoff; Run itself never fails.
func (p *Poller) Run(ctx context.Context) error {
	p.opts.Logger.Info("watching for changes", "root", p.opts.Root, "mode", "poll", "interval", p.opts.Interval)

	for !p.stopped.Load() {
		wait := p.opts.Interval
		err := p.Scan()
		if err != nil {
			metrics.ObserveScanError()
			p.opts.Logger.Error("watch scan failed", "root", p.opts.Root, "err", err, "retry_in", p.opts.Backoff)
			wait = p.opts.Backoff
		}
		p.opts.OnStatus(err)

		if !sleep(ctx, p.done, wait) {
			break
		}
	}

	p.opts.Logger.Info("watcher stopped", "root", p.opts.Root)
	return nil
}

// Stop asks Run to exit. It also cuts the current sleep short.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		close(p.done)
	})
}

// Tracked reports how many files the last scan knew about. Safe to call from
// any goroutine.
func (p *Poller) Tracked() int {
	return int(p.tracked.Load())
}

// Scan performs one pass over the tree. The first sighting of a file only
// records its timestamp; a later differing timestamp fires the callback once
// and then updates the record. Files that vanish or cannot be stat'ed are
// skipped. Scan must not run concurrently with Run.
func (p *Poller) Scan() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("watch scan panicked: %v", r)
		}
	}()

	err = filepath.WalkDir(p.opts.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == p.opts.Root {
				return walkErr
			}
			// Unreadable subtree; keep going with the rest.
			return nil
		}
		if d.IsDir() || !p.exts.matches(path) {
			return nil
		}

		// Stat rather than d.Info so symlinked files report their target.
		info, statErr := os.Stat(path)
		if statErr != nil || !info.Mode().IsRegular() {
			return nil
		}
		p.observe(path, info.ModTime())
		return nil
	})
	if err != nil {
		return err
	}

	p.tracked.Store(int64(len(p.entries)))
	metrics.ObserveScan(len(p.entries))
	return nil
}

func (p *Poller) observe(path string, modTime time.Time) {
	previous, seen := p.entries[path]
	if !seen {
		p.entries[path] = modTime
		return
	}
	if previous.Equal(modTime) {
		return
	}

	p.opts.Logger.Info("file changed", "path", path)
	metrics.ObserveChange()
	if p.callback != nil {
		p.callback(Change{Path: path, Previous: previous, Current: modTime})
	}
	p.entries[path] = modTime
}
