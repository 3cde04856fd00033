package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Save saves the configuration to the config file (~/.diffscope/config.yaml).
// It creates the config directory if it doesn't exist and writes the config
// in YAML format with user-friendly path formatting (using ~ for home directory).
// It validates that the config directory is within the home directory to prevent symlink attacks.
func Save(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, configDirName)

	// Resolve symlinks to prevent symlink attacks
	resolvedConfigDir, err := filepath.EvalSymlinks(configDir)
	if err != nil {
		// If directory doesn't exist yet, that's okay - we'll create it
		// But verify the path we're about to create is safe
		if !isPathWithinHome(configDir, homeDir) {
			return fmt.Errorf("config directory path is outside home directory")
		}
		resolvedConfigDir = configDir
	} else {
		// Verify resolved path is within home directory
		if !isPathWithinHome(resolvedConfigDir, homeDir) {
			return fmt.Errorf("config directory resolves to path outside home directory")
		}
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(resolvedConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Re-resolve after creation to ensure it's still safe
	resolvedConfigDir, err = filepath.EvalSymlinks(resolvedConfigDir)
	if err == nil && !isPathWithinHome(resolvedConfigDir, homeDir) {
		return fmt.Errorf("config directory is outside home directory")
	}

	// Use resolved path for config file
	configPath := filepath.Join(resolvedConfigDir, configFileName+"."+configFileType)

	// Create a copy of config with paths converted to ~ format for readability
	saveCfg := convertPathsToTilde(cfg, homeDir)

	// Marshal config to YAML
	data, err := yaml.Marshal(saveCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// Write config file with restrictive permissions
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// isPathWithinHome checks that a path is inside the user's home directory
func isPathWithinHome(path, homeDir string) bool {
	rel, err := filepath.Rel(homeDir, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// convertPathsToTilde returns a copy of the config with home-relative paths
// rewritten in ~ notation for readability
func convertPathsToTilde(cfg *Config, homeDir string) *Config {
	out := *cfg
	out.Repository = pathToTilde(cfg.Repository, homeDir)
	out.Storage.BasePath = pathToTilde(cfg.Storage.BasePath, homeDir)
	out.Storage.DatabasePath = pathToTilde(cfg.Storage.DatabasePath, homeDir)
	out.Logging.FilePath = pathToTilde(cfg.Logging.FilePath, homeDir)
	return &out
}

// pathToTilde converts an absolute path under the home directory to ~ notation
func pathToTilde(path, homeDir string) string {
	if path == "" || !strings.HasPrefix(path, homeDir) {
		return path
	}
	rel, err := filepath.Rel(homeDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	if rel == "." {
		return "~"
	}
	return filepath.Join("~", rel)
}
