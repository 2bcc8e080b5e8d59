package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) callback(change Change) {
	r.mu.Lock()
	r.changes = append(r.changes, change)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func (r *recorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.changes))
	for _, change := range r.changes {
		paths = append(paths, change.Path)
	}
	return paths
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func testOptions(root string) Options {
	return Options{
		Root:       root,
		Extensions: []string{".ts", ".js", ".html", ".css"},
		Interval:   10 * time.Millisecond,
		Backoff:    20 * time.Millisecond,
	}
}

func TestPollerFirstScanFiresNothing(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.ts", "b.js", "c.html", "d.css", "nested/deep/e.ts"} {
		writeFile(t, filepath.Join(root, name), name)
	}

	rec := &recorder{}
	poller := NewPoller(testOptions(root), rec.callback)

	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("expected no callbacks on first scan, got %v", rec.paths())
	}
	if poller.Tracked() != 5 {
		t.Fatalf("expected 5 tracked files, got %d", poller.Tracked())
	}

	if err := poller.Scan(); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("expected no callbacks for unchanged files, got %v", rec.paths())
	}
}

func TestPollerFiresOncePerChange(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "src", "app.ts")
	style := filepath.Join(root, "style.css")
	writeFile(t, app, "let a = 1")
	writeFile(t, style, "body{}")

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	touch(t, app, base)
	touch(t, style, base)

	rec := &recorder{}
	poller := NewPoller(testOptions(root), rec.callback)
	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	touch(t, app, base.Add(time.Minute))
	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected exactly one callback, got %v", rec.paths())
	}
	change := rec.changes[0]
	if change.Path != app {
		t.Fatalf("expected change for %s, got %s", app, change.Path)
	}
	if !change.Previous.Equal(base) || !change.Current.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected timestamps %v -> %v", change.Previous, change.Current)
	}

	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("unchanged rescan must not fire again, got %v", rec.paths())
	}

	touch(t, app, base.Add(2*time.Minute))
	touch(t, style, base.Add(2*time.Minute))
	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rec.count() != 3 {
		t.Fatalf("expected one callback per changed file, got %v", rec.paths())
	}
}

func TestPollerIgnoresUntrackedFiles(t *testing.T) {
	root := t.TempDir()
	readme := filepath.Join(root, "README.md")
	video := filepath.Join(root, "dist", "clip.mp4")
	writeFile(t, readme, "# readme")
	writeFile(t, video, "data")

	rec := &recorder{}
	poller := NewPoller(testOptions(root), rec.callback)
	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	later := time.Now().Add(time.Hour)
	touch(t, readme, later)
	touch(t, video, later)
	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("expected untracked extensions to be ignored, got %v", rec.paths())
	}
	if poller.Tracked() != 0 {
		t.Fatalf("expected nothing tracked, got %d", poller.Tracked())
	}
}

func TestPollerNewFileIsFirstSight(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	poller := NewPoller(testOptions(root), rec.callback)
	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	writeFile(t, filepath.Join(root, "late.ts"), "x")
	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("a newly created file should be recorded silently, got %v", rec.paths())
	}
}

func TestPollerScanFailsWhenRootMissing(t *testing.T) {
	poller := NewPoller(testOptions(filepath.Join(t.TempDir(), "missing")), nil)
	if err := poller.Scan(); err == nil {
		t.Fatal("expected scan error for missing root")
	}
}

func TestPollerScanRecoversCallbackPanic(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.ts")
	writeFile(t, path, "x")
	touch(t, path, time.Now().Add(-time.Hour))

	poller := NewPoller(testOptions(root), func(Change) { panic("boom") })
	if err := poller.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	touch(t, path, time.Now())
	if err := poller.Scan(); err == nil {
		t.Fatal("expected panic to surface as a scan error")
	}
}

func TestPollerSurvivesInaccessibleRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")
	rec := &recorder{}
	poller := NewPoller(testOptions(root), rec.callback)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	// Let a few scans fail against the missing root.
	time.Sleep(60 * time.Millisecond)

	path := filepath.Join(root, "main.ts")
	writeFile(t, path, "x")
	touch(t, path, time.Now().Add(-time.Hour))

	waitFor(t, "file to be tracked", func() bool { return poller.Tracked() == 1 })

	touch(t, path, time.Now())
	waitFor(t, "change callback", func() bool { return rec.count() == 1 })

	poller.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestPollerStopInterruptsSleep(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.Interval = time.Hour
	poller := NewPoller(opts, nil)

	done := make(chan struct{})
	go func() {
		poller.Run(context.Background())
		close(done)
	}()

	// Give Run time to finish its scan and enter the hour-long sleep.
	time.Sleep(20 * time.Millisecond)
	poller.Stop()
	poller.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop should cut the poll interval short")
	}
}

func TestPollerRunStopsOnContextCancel(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.Interval = time.Hour
	poller := NewPoller(opts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run should return after cancellation")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPollerReportsScanStatus(t *testing.T) {
	root := filepath.Join(t.TempDir(), "later")
	var mu sync.Mutex
	var statuses []error

	opts := testOptions(root)
	opts.OnStatus = func(err error) {
		mu.Lock()
		statuses = append(statuses, err)
		mu.Unlock()
	}
	poller := NewPoller(opts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	lastStatus := func() (error, bool) {
		mu.Lock()
		defer mu.Unlock()
		if len(statuses) == 0 {
			return nil, false
		}
		return statuses[len(statuses)-1], true
	}

	waitFor(t, "failing scan", func() bool {
		err, ok := lastStatus()
		return ok && err != nil
	})

	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	waitFor(t, "recovered scan", func() bool {
		err, ok := lastStatus()
		return ok && err == nil
	})
	poller.Stop()
}
