// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxUploadSize caps a single multipart upload request, in bytes
	MaxUploadSize int64 `mapstructure:"max_upload_size"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// OpenAIConfig holds OpenAI API configuration. An empty API key is valid:
// field extraction then runs on the pattern-matching fallback alone.
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds file storage directories
type StorageConfig struct {
	TempDir   string `mapstructure:"temp_dir"`
	UploadDir string `mapstructure:"upload_dir"`
}

// BatchConfig holds batch pipeline tuning
type BatchConfig struct {
	WindowSize int           `mapstructure:"window_size"`
	PausePoll  time.Duration `mapstructure:"pause_poll"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from an optional YAML file plus environment
// variables. A missing config file is not an error; defaults and the
// environment carry a full configuration on their own.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_size", int64(200<<20))

	v.SetDefault("database.path", "data/invoices.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.max_tokens", 2000)
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("storage.temp_dir", "data/tmp")
	v.SetDefault("storage.upload_dir", "data/uploads")

	v.SetDefault("batch.window_size", 5)
	v.SetDefault("batch.pause_poll", 100*time.Millisecond)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("storage.temp_dir", "STORAGE_TEMP_DIR")
	v.BindEnv("storage.upload_dir", "STORAGE_UPLOAD_DIR")
	v.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.TempDir == "" {
		return fmt.Errorf("storage.temp_dir is required")
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}
	if c.Storage.TempDir == c.Storage.UploadDir {
		return fmt.Errorf("storage.temp_dir and storage.upload_dir must differ")
	}
	if c.Batch.WindowSize <= 0 {
		return fmt.Errorf("batch.window_size must be positive")
	}
	if c.Batch.PausePoll <= 0 {
		return fmt.Errorf("batch.pause_poll must be positive")
	}
	return nil
}
