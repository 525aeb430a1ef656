package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - FOLIO_CONFIG_PATH: config file location (default: ~/.config/folio.toml)
//   - FOLIO_HOME: base directory for folio data (default: ~/.local/share/folio)
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome("FOLIO_CONFIG_PATH", ".config", "folio.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := fromEnvOrHome("FOLIO_HOME", ".local", "share", "folio")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// fromEnvOrHome returns the value of env if set, otherwise the given path
// under the user's home directory.
func fromEnvOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
