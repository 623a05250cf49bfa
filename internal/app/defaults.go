package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - MDAGE_CONFIG_PATH: config file location (default: ~/.config/mdage.toml)
//   - MDAGE_HOME: base directory for mdage data (default: ~/.local/share/mdage)
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
		"db_dir":      filepath.Join(baseDir, "db"),
	}, nil
}

// LoadEnvFile loads KEY=value pairs from path into the environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// getConfigPath returns the config file path, checking MDAGE_CONFIG_PATH env var first,
// then falling back to the default ~/.config/mdage.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("MDAGE_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "mdage.toml"), nil
}

// getBaseDir returns the base directory for mdage data, checking MDAGE_HOME env var first,
// then falling back to the XDG default ~/.local/share/mdage.
func getBaseDir() (string, error) {
	if path := os.Getenv("MDAGE_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "mdage"), nil
}
