package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns ~/.versescrape/config.yaml, or "" when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".versescrape", "config.yaml")
}

// ExistingConfigPath returns the default config path if a file exists there,
// or "" otherwise. A missing file is not an error.
func ExistingConfigPath() string {
	path := DefaultConfigPath()
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// WriteConfigFile writes cfg to path as YAML, creating parent directories.
// An existing file is only replaced when overwrite is set.
func WriteConfigFile(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# versescrape configuration\n" +
		"# Any key can be overridden with VERSESCRAPE_<SECTION>_<KEY>, e.g. VERSESCRAPE_HARVEST_TABS=8\n\n")

	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
