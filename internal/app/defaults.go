package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables overriding the default locations.
const (
	EnvConfigPath = "OBSLOG_CONFIG_PATH"
	EnvHome       = "OBSLOG_HOME"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - OBSLOG_CONFIG_PATH: config file location (default: ~/.config/obslog.toml)
//   - OBSLOG_HOME: base directory for obslog data (default: ~/.local/share/obslog)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "obslog.toml"), nil
}

// getBaseDir returns the data directory, following the XDG layout when
// OBSLOG_HOME is unset.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "obslog"), nil
}
