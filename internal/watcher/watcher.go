// Package watcher detects modifications to source files and reports each one
// through a callback. Two backends share the same contract: Poller scans the
// tree on a fixed interval, Notifier listens for fsnotify events.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"
)

// Change describes one detected modification.
type Change struct {
	Path     string
	Previous time.Time
	Current  time.Time
}

// Callback is invoked from the watcher's goroutine, once per changed file.
type Callback func(Change)

// Watcher runs until Stop is called or ctx is cancelled.
type Watcher interface {
	Run(ctx context.Context) error
	Stop()
}

// Options controls watcher behavior.
type Options struct {
	Root       string
	Extensions []string
	Interval   time.Duration
	Backoff    time.Duration
	// Debounce is the quiet period the fsnotify backend waits after an event
	// before looking at the file.
	Debounce time.Duration
	Logger   *slog.Logger
	// OnStatus, if set, receives the outcome of every scan or registration
	// attempt: nil on success, the failure otherwise.
	OnStatus func(error)
}

const (
	defaultInterval = 500 * time.Millisecond
	defaultBackoff  = time.Second
	defaultDebounce = 50 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	if o.Backoff <= 0 {
		o.Backoff = defaultBackoff
	}
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("component", "watcher")
	if o.OnStatus == nil {
		o.OnStatus = func(error) {}
	}
	return o
}

type extensionSet map[string]struct{}

func newExtensionSet(exts []string) extensionSet {
	set := make(extensionSet, len(exts))
	for _, ext := range exts {
		set[ext] = struct{}{}
	}
	return set
}

func (s extensionSet) matches(path string) bool {
	_, ok := s[filepath.Ext(path)]
	return ok
}

// sleep waits for d and reports false if done or ctx fired first.
func sleep(ctx context.Context, done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-done:
		return false
	case <-ctx.Done():
		return false
	}
}
