// Package config handles global libri configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global libri configuration.
type Config struct {
	// DefaultLibrary is the name of the default library (from Libraries).
	DefaultLibrary string `toml:"default_library"`

	// Libraries maps library names to root directories.
	Libraries map[string]string `toml:"libraries"`

	// Serve holds web view settings.
	Serve ServeConfig `toml:"serve"`
}

// ServeConfig holds settings for `libri serve`.
type ServeConfig struct {
	// Addr is the listen address. Default: 127.0.0.1:5000.
	Addr string `toml:"addr"`
}

// DefaultServeAddr is used when the config does not set one.
const DefaultServeAddr = "127.0.0.1:5000"

// GetLibraryPath returns the root path for a named library.
// If name is empty, the default library is used.
func (c *Config) GetLibraryPath(name string) (string, error) {
	if name == "" {
		name = c.DefaultLibrary
	}
	if name == "" {
		return "", fmt.Errorf("no default library configured")
	}
	if path, ok := c.Libraries[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("library '%s' not found in config", name)
}

// GetServeAddr returns the configured listen address or the default.
func (c *Config) GetServeAddr() string {
	if c.Serve.Addr != "" {
		return c.Serve.Addr
	}
	return DefaultServeAddr
}

// Load loads the configuration from the default location.
// Returns an empty config if the file doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom loads the configuration from a specific path. A missing file is
// not an error.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/libri/config.toml first (XDG style), then falls back to
// the OS-specific config directory.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "libri", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "libri", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}
