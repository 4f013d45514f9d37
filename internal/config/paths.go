package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "TOPOMAP_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "topomap.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "topomap"
)

// SearchPaths lists the candidate config locations in priority order.
// Locations whose environment variable is unset are left out.
func SearchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing entry of SearchPaths, made
// absolute when it is relative. It returns "" if no config file exists.
func FindConfigPath() string {
	for _, path := range SearchPaths() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
