package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Seed     SeedConfig     `yaml:"seed"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigins  []string `yaml:"allowed_origins,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig selects the zap configuration
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MonitorConfig controls background reachability probing
type MonitorConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Interval      Duration `yaml:"interval"`
	Timeout       Duration `yaml:"timeout"`
	Ports         []int    `yaml:"ports,omitempty"`
	MaxConcurrent int      `yaml:"max_concurrent"`
	WarnLatency   Duration `yaml:"warn_latency"`
}

// SeedConfig names a topology file loaded into an empty database.
// With Watch set, later edits to the file replace the topology.
type SeedConfig struct {
	Path  string `yaml:"path,omitempty"`
	Watch bool   `yaml:"watch"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
