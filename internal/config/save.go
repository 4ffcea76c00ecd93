package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nbelyaev/libri/internal/atomicfile"
)

// persistedConfig mirrors Config with omitempty semantics so a saved file
// only carries what the user actually set.
type persistedConfig struct {
	DefaultLibrary *string              `toml:"default_library,omitempty"`
	Libraries      map[string]string    `toml:"libraries,omitempty"`
	Serve          *persistedServeExtra `toml:"serve,omitempty"`
}

type persistedServeExtra struct {
	Addr *string `toml:"addr,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Save writes the global config to the default config path.
func Save(cfg *Config) error {
	return SaveTo(DefaultPath(), cfg)
}

// SaveTo writes the global config to a specific path atomically.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		DefaultLibrary: nonEmptyPtr(cfg.DefaultLibrary),
	}
	if len(cfg.Libraries) > 0 {
		out.Libraries = cfg.Libraries
	}
	if addr := nonEmptyPtr(cfg.Serve.Addr); addr != nil {
		out.Serve = &persistedServeExtra{Addr: addr}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
