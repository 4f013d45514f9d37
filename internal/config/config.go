// Package config provides configuration management for topomap.
//
// Config file locations (priority order):
//  1. $TOPOMAP_CONFIG
//  2. ./topomap.yaml
//  3. $XDG_CONFIG_HOME/topomap/config.yaml
//  4. ~/.config/topomap/config.yaml
//  5. /etc/topomap/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddr            = ":3000"
	defaultDatabasePath    = "./topomap.db"
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 10 * time.Second
	defaultMonitorInterval = time.Minute
	defaultMonitorTimeout  = 2 * time.Second
	defaultMaxConcurrent   = 10
	defaultWarnLatency     = 200 * time.Millisecond
)

var defaultMonitorPorts = []int{22, 80, 443, 53}

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes, defaults and validates a YAML config document
func Parse(data []byte) (*Config, error) {
	// Start from defaults so an absent "monitor.enabled" keeps its default
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            defaultAddr,
			ShutdownTimeout: Duration(defaultShutdownTimeout),
		},
		Database: DatabaseConfig{Path: defaultDatabasePath},
		Log:      LogConfig{Level: defaultLogLevel},
		Monitor: MonitorConfig{
			Enabled:       true,
			Interval:      Duration(defaultMonitorInterval),
			Timeout:       Duration(defaultMonitorTimeout),
			Ports:         append([]int(nil), defaultMonitorPorts...),
			MaxConcurrent: defaultMaxConcurrent,
			WarnLatency:   Duration(defaultWarnLatency),
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = Duration(defaultMonitorInterval)
	}
	if c.Monitor.Timeout == 0 {
		c.Monitor.Timeout = Duration(defaultMonitorTimeout)
	}
	if len(c.Monitor.Ports) == 0 {
		c.Monitor.Ports = append([]int(nil), defaultMonitorPorts...)
	}
	if c.Monitor.MaxConcurrent == 0 {
		c.Monitor.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Monitor.WarnLatency == 0 {
		c.Monitor.WarnLatency = Duration(defaultWarnLatency)
	}
}

// Validate reports every problem in the config at once
func (c *Config) Validate() error {
	var problems []string

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q is not a zap level", c.Log.Level))
	}
	if c.Monitor.Interval.Duration() < time.Second {
		problems = append(problems, "monitor.interval must be at least 1s")
	}
	if c.Monitor.Timeout.Duration() <= 0 {
		problems = append(problems, "monitor.timeout must be positive")
	}
	if c.Monitor.MaxConcurrent < 0 {
		problems = append(problems, "monitor.max_concurrent must not be negative")
	}
	for _, p := range c.Monitor.Ports {
		if p < 1 || p > 65535 {
			problems = append(problems, fmt.Sprintf("monitor.ports: %d is out of range", p))
		}
	}
	if c.Server.ShutdownTimeout.Duration() < 0 {
		problems = append(problems, "server.shutdown_timeout must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Listen: %s, Database: %s, Log: %s\n", c.Server.Addr, c.Database.Path, c.Log.Level)
	if c.Monitor.Enabled {
		summary += fmt.Sprintf("Monitor: every %s, timeout %s, ports %v, concurrency %d",
			c.Monitor.Interval.Duration(), c.Monitor.Timeout.Duration(), c.Monitor.Ports, c.Monitor.MaxConcurrent)
	} else {
		summary += "Monitor: disabled"
	}
	if c.Seed.Path != "" {
		summary += fmt.Sprintf("\nSeed: %s (watch=%t)", c.Seed.Path, c.Seed.Watch)
	}
	return summary
}
