package config

// Config represents the root configuration structure for diffscope
type Config struct {
	Repository string        `mapstructure:"repository" yaml:"repository"`
	Storage    StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging    LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Push       PushConfig    `mapstructure:"push" yaml:"push"`
}

// StorageConfig contains storage-related configuration
type StorageConfig struct {
	BasePath     string `mapstructure:"base_path" yaml:"base_path"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
	Console  bool   `mapstructure:"console" yaml:"console"`
}

// PushConfig contains push-related configuration
type PushConfig struct {
	Remote   string   `mapstructure:"remote" yaml:"remote"`
	RefSpecs []string `mapstructure:"refspecs" yaml:"refspecs"`
}
