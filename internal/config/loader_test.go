package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Fatalf("expected default listen :8080, got %q", cfg.Server.Listen)
	}
	if cfg.Static.Root != "dist" {
		t.Fatalf("expected default root dist, got %q", cfg.Static.Root)
	}
	if len(cfg.Static.Rewrites) != 1 {
		t.Fatalf("expected one default rewrite, got %d", len(cfg.Static.Rewrites))
	}
	rule := cfg.Static.Rewrites[0]
	if rule.Suffix != ".ts" || rule.From != "dist/src" || rule.To != "src" {
		t.Fatalf("unexpected default rewrite %+v", rule)
	}
	if cfg.Watch.Interval != 500*time.Millisecond || cfg.Watch.Backoff != time.Second {
		t.Fatalf("unexpected watch timings %v/%v", cfg.Watch.Interval, cfg.Watch.Backoff)
	}
	if got := strings.Join(cfg.Watch.Extensions, ","); got != ".ts,.js,.html,.css" {
		t.Fatalf("unexpected default extensions %q", got)
	}
	if !cfg.Watch.IsEnabled() || !cfg.Reload.IsEnabled() || !cfg.Metrics.IsEnabled() {
		t.Fatal("expected watch, reload and metrics enabled by default")
	}
	if cfg.Logging.Output != "stderr" {
		t.Fatalf("expected stderr log output, got %q", cfg.Logging.Output)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "devserver.yaml", `
server:
  listen: ":9090"
  headers:
    Cache-Control: no-store
static:
  root: public
  rewrites: []
watch:
  enabled: false
  mode: notify
  interval: 250ms
logging:
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.Server.Listen)
	}
	if cfg.Server.Headers["Cache-Control"] != "no-store" {
		t.Fatalf("expected custom header, got %v", cfg.Server.Headers)
	}
	if cfg.Static.Root != "public" {
		t.Fatalf("expected root public, got %q", cfg.Static.Root)
	}
	if len(cfg.Static.Rewrites) != 0 {
		t.Fatalf("expected explicit empty rewrites to be kept, got %v", cfg.Static.Rewrites)
	}
	if cfg.Watch.IsEnabled() {
		t.Fatal("expected watch disabled")
	}
	if cfg.Watch.Mode != ModeNotify {
		t.Fatalf("expected notify mode, got %q", cfg.Watch.Mode)
	}
	if cfg.Watch.Interval != 250*time.Millisecond {
		t.Fatalf("expected 250ms interval, got %v", cfg.Watch.Interval)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "devserver.toml", `
[server]
listen = ":7070"

[static]
root = "build"

[[static.rewrites]]
suffix = ".tsx"
from = "build/app"
to = "app"

[watch]
extensions = [".tsx"]
interval = "2s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":7070" || cfg.Static.Root != "build" {
		t.Fatalf("unexpected server/static config: %+v %+v", cfg.Server, cfg.Static)
	}
	if len(cfg.Static.Rewrites) != 1 || cfg.Static.Rewrites[0].Suffix != ".tsx" {
		t.Fatalf("unexpected rewrites %+v", cfg.Static.Rewrites)
	}
	if cfg.Watch.Interval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %v", cfg.Watch.Interval)
	}
}

func TestLoadJSONExpandsEnv(t *testing.T) {
	t.Setenv("DEVSERVER_TEST_ROOT", "site")
	path := writeConfig(t, "devserver.json", `{"static": {"root": "${DEVSERVER_TEST_ROOT}"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Static.Root != "site" {
		t.Fatalf("expected env-expanded root, got %q", cfg.Static.Root)
	}
}

func TestLoadJSONDurations(t *testing.T) {
	path := writeConfig(t, "devserver.json", `{
		"server": {"listen": ":9000", "read_timeout": "5s", "idle_timeout": 60000000000},
		"watch": {"mode": "notify", "interval": "250ms", "backoff": "2s"},
		"reload": {"path": "/__devserver/reload", "min_interval": "50ms"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":9000" || cfg.Watch.Mode != ModeNotify {
		t.Fatalf("non-duration fields lost: %+v", cfg)
	}
	if cfg.Server.ReadTimeout != 5*time.Second || cfg.Server.IdleTimeout != time.Minute {
		t.Fatalf("unexpected server timeouts %v/%v", cfg.Server.ReadTimeout, cfg.Server.IdleTimeout)
	}
	if cfg.Watch.Interval != 250*time.Millisecond || cfg.Watch.Backoff != 2*time.Second {
		t.Fatalf("unexpected watch timings %v/%v", cfg.Watch.Interval, cfg.Watch.Backoff)
	}
	if cfg.Reload.MinInterval != 50*time.Millisecond {
		t.Fatalf("unexpected reload interval %v", cfg.Reload.MinInterval)
	}

	bad := writeConfig(t, "bad.json", `{"watch": {"interval": "soon"}}`)
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("expected invalid duration error, got %v", err)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"watch mode", "watch:\n  mode: inotify\n", "invalid watch mode"},
		{"extension", "watch:\n  extensions: [ts]\n", "must start with a dot"},
		{"rewrite suffix", "static:\n  rewrites:\n    - from: dist/src\n", "suffix cannot be empty"},
		{"rewrite from", "static:\n  rewrites:\n    - suffix: .ts\n      from: /\n", "from segment cannot be empty"},
		{"reload path", "reload:\n  path: reload\n", "reload path"},
		{"log format", "logging:\n  format: xml\n", "invalid logging format"},
		{"log level", "logging:\n  level: loud\n", "invalid logging level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "devserver.yaml", tc.body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
