package config

import (
	"time"
)

type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server" toml:"server"`
	Static  StaticConfig  `yaml:"static" json:"static" toml:"static"`
	Watch   WatchConfig   `yaml:"watch" json:"watch" toml:"watch"`
	Reload  ReloadConfig  `yaml:"reload" json:"reload" toml:"reload"`
	Logging LoggingConfig `yaml:"logging" json:"logging" toml:"logging"`
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics"`
}

type ServerConfig struct {
	Listen       string            `yaml:"listen" json:"listen" toml:"listen"`
	HTTP2        bool              `yaml:"http2" json:"http2" toml:"http2"`
	HotReload    bool              `yaml:"hot_reload" json:"hot_reload" toml:"hot_reload"`
	ReadTimeout  time.Duration     `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration     `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`
	IdleTimeout  time.Duration     `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`
	CORS         *CORSConfig       `yaml:"cors,omitempty" json:"cors,omitempty" toml:"cors"`
	Headers      map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" toml:"headers"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers" toml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age" toml:"max_age"`
}

// StaticConfig describes the served root and the source rewrites applied to
// request paths before they hit the filesystem.
type StaticConfig struct {
	Root     string        `yaml:"root" json:"root" toml:"root"`
	Rewrites []RewriteRule `yaml:"rewrites" json:"rewrites" toml:"rewrites"`
}

// RewriteRule maps paths ending in Suffix from the From directory segment to
// the To segment, e.g. dist/src/app.ts -> src/app.ts.
type RewriteRule struct {
	Suffix string `yaml:"suffix" json:"suffix" toml:"suffix"`
	From   string `yaml:"from" json:"from" toml:"from"`
	To     string `yaml:"to" json:"to" toml:"to"`
}

type WatchConfig struct {
	Enabled    *bool         `yaml:"enabled,omitempty" json:"enabled,omitempty" toml:"enabled"`
	Mode       string        `yaml:"mode" json:"mode" toml:"mode"` // "poll" or "notify"
	Dir        string        `yaml:"dir" json:"dir" toml:"dir"`
	Extensions []string      `yaml:"extensions" json:"extensions" toml:"extensions"`
	Interval   time.Duration `yaml:"interval" json:"interval" toml:"interval"`
	Backoff    time.Duration `yaml:"backoff" json:"backoff" toml:"backoff"`
}

// IsEnabled reports whether the watcher should run; unset means enabled.
func (w WatchConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

type ReloadConfig struct {
	Enabled     *bool         `yaml:"enabled,omitempty" json:"enabled,omitempty" toml:"enabled"`
	Path        string        `yaml:"path" json:"path" toml:"path"`
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval" toml:"min_interval"`
}

func (r ReloadConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level" toml:"level"`
	Format     string `yaml:"format" json:"format" toml:"format"`
	Output     string `yaml:"output" json:"output" toml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days" toml:"max_age_days"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty" toml:"enabled"`
	Path    string `yaml:"path" json:"path" toml:"path"`
}

func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}
