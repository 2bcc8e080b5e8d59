package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	ModePoll   = "poll"
	ModeNotify = "notify"
)

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load reads a YAML, JSON or TOML config file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Replace environment variables
	dataStr := os.ExpandEnv(string(data))

	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal([]byte(dataStr), &cfg)
	case ".toml":
		_, err = toml.Decode(dataStr, &cfg)
	default:
		err = yaml.Unmarshal([]byte(dataStr), &cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}

	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}

	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}

	if cfg.Static.Root == "" {
		cfg.Static.Root = "dist"
	}

	if cfg.Static.Rewrites == nil {
		cfg.Static.Rewrites = []RewriteRule{
			{Suffix: ".ts", From: "dist/src", To: "src"},
		}
	}

	if cfg.Watch.Mode == "" {
		cfg.Watch.Mode = ModePoll
	}

	if cfg.Watch.Dir == "" {
		cfg.Watch.Dir = "."
	}

	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = []string{".ts", ".js", ".html", ".css"}
	}

	if cfg.Watch.Interval == 0 {
		cfg.Watch.Interval = 500 * time.Millisecond
	}

	if cfg.Watch.Backoff == 0 {
		cfg.Watch.Backoff = time.Second
	}

	if cfg.Reload.Path == "" {
		cfg.Reload.Path = "/__devserver/reload"
	}

	if cfg.Reload.MinInterval == 0 {
		cfg.Reload.MinInterval = 100 * time.Millisecond
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/__devserver/metrics"
	}
}

func validate(cfg *Config) error {
	for i, rule := range cfg.Static.Rewrites {
		if rule.Suffix == "" {
			return fmt.Errorf("rewrite %d: suffix cannot be empty", i)
		}
		if strings.Trim(rule.From, "/") == "" {
			return fmt.Errorf("rewrite %d: from segment cannot be empty", i)
		}
	}

	if cfg.Watch.Mode != ModePoll && cfg.Watch.Mode != ModeNotify {
		return fmt.Errorf("invalid watch mode %q", cfg.Watch.Mode)
	}

	if cfg.Watch.Interval < 0 || cfg.Watch.Backoff < 0 {
		return fmt.Errorf("watch interval and backoff must be positive")
	}

	for _, ext := range cfg.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("watch extension %q must start with a dot", ext)
		}
	}

	if !strings.HasPrefix(cfg.Reload.Path, "/") {
		return fmt.Errorf("reload path %q must start with /", cfg.Reload.Path)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics path %q must start with /", cfg.Metrics.Path)
	}

	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format %q", cfg.Logging.Format)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging level %q", cfg.Logging.Level)
	}

	return nil
}
