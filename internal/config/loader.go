package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDirName  = ".diffscope"
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "DIFFSCOPE"
)

// Load loads the configuration from file, environment variables, and defaults.
// It returns a Config struct populated with values from these sources in order of precedence:
// 1. Environment variables (DIFFSCOPE_ prefix)
// 2. Configuration file (~/.diffscope/config.yaml)
// 3. Default values
func Load() (*Config, error) {
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("failed to initialize viper: %w", err)
	}

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand home directory paths in the loaded config
	expandConfigPaths(&cfg)

	return &cfg, nil
}

// initViper initializes Viper with configuration file path, environment variable prefix, and settings
func initViper() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, configDirName)
	configPath := filepath.Join(configDir, configFileName+"."+configFileType)

	// Set config file path
	viper.SetConfigFile(configPath)

	// Set environment variable prefix
	viper.SetEnvPrefix(envPrefix)

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	// Replace dots and dashes with underscores in env var names
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Try to read the config file (it's okay if it doesn't exist)
	if err := viper.ReadInConfig(); err != nil {
		// Ignore file not found errors - we'll use defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use literal ~ which will be expanded later
		homeDir = "~"
	}

	// Repository - current working directory resolved at use time
	viper.SetDefault("repository", "")

	// Storage paths
	viper.SetDefault("storage.base_path", filepath.Join(homeDir, configDirName))
	viper.SetDefault("storage.database_path", filepath.Join(homeDir, configDirName, "diffscope.db"))

	// Logging configuration
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file_path", "")
	viper.SetDefault("logging.console", false)

	// Push configuration
	viper.SetDefault("push.remote", "origin")
	viper.SetDefault("push.refspecs", []string{})
}

// expandHomeDir expands ~ in a path to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// If we can't get home dir, return path as-is
			return path
		}
		if path == "~" {
			return homeDir
		}
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// expandConfigPaths expands all ~ paths in the configuration struct
func expandConfigPaths(cfg *Config) {
	cfg.Repository = expandHomeDir(cfg.Repository)
	cfg.Storage.BasePath = expandHomeDir(cfg.Storage.BasePath)
	cfg.Storage.DatabasePath = expandHomeDir(cfg.Storage.DatabasePath)
	cfg.Logging.FilePath = expandHomeDir(cfg.Logging.FilePath)
}
