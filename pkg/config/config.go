package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	Queue     QueueConfig     `yaml:"queue" json:"queue"`
	Transport TransportConfig `yaml:"transport" json:"transport"`
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Cleanup   CleanupConfig   `yaml:"cleanup" json:"cleanup"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// QueueConfig holds durable queue settings.
type QueueConfig struct {
	Path string `yaml:"path" json:"path"`
}

// TransportConfig holds upload transport settings.
type TransportConfig struct {
	// Timeout bounds a single upload request. Zero disables the deadline.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// SchedulerConfig holds job trigger settings.
type SchedulerConfig struct {
	PollInterval  time.Duration `yaml:"pollInterval" json:"pollInterval"`
	RetryInterval time.Duration `yaml:"retryInterval" json:"retryInterval"`
}

// CleanupConfig holds file cleanup worker settings.
type CleanupConfig struct {
	QueueSize   int           `yaml:"queueSize" json:"queueSize"`
	StopTimeout time.Duration `yaml:"stopTimeout" json:"stopTimeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DefaultConfig holds the built-in default values.
var DefaultConfig = Config{
	Queue: QueueConfig{
		Path: "/var/lib/uploader/queue.json",
	},
	Transport: TransportConfig{
		Timeout: 5 * time.Minute,
	},
	Scheduler: SchedulerConfig{
		PollInterval:  1 * time.Minute,
		RetryInterval: 15 * time.Second,
	},
	Cleanup: CleanupConfig{
		QueueSize:   64,
		StopTimeout: 2 * time.Second,
	},
	Logging: LoggingConfig{
		Level: "INFO",
	},
}

// LoadConfig loads configuration from multiple sources in order of precedence:
// 1. Environment variables (highest precedence)
// 2. Configuration file
// 3. Default values (lowest precedence)
func LoadConfig() (*Config, string, error) {
	config := DefaultConfig

	path, err := loadFromFile(&config)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	loadFromEnv(&config)

	if e := config.Validate(); e != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", e)
	}

	return &config, path, nil
}

// loadFromFile loads configuration from the first YAML file found.
func loadFromFile(config *Config) (string, error) {
	configPaths := []string{
		os.Getenv("UPLOADER_CONFIG_PATH"), // Custom path from environment
		"./uploader.yaml",                 // Current directory
		"./config/uploader.yaml",          // Config subdirectory
		"/etc/uploader/uploader.yaml",     // System-wide
	}

	for _, path := range configPaths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", path, err)
		}

		return path, nil
	}

	return "built-in defaults (no config file found)", nil
}

// loadFromEnv overrides configuration from UPLOADER_* environment variables.
func loadFromEnv(config *Config) {
	if val := os.Getenv("UPLOADER_QUEUE_PATH"); val != "" {
		config.Queue.Path = val
	}
	if val := os.Getenv("UPLOADER_TRANSPORT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Transport.Timeout = d
		}
	}
	if val := os.Getenv("UPLOADER_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Scheduler.PollInterval = d
		}
	}
	if val := os.Getenv("UPLOADER_RETRY_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Scheduler.RetryInterval = d
		}
	}
	if val := os.Getenv("UPLOADER_CLEANUP_QUEUE_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Cleanup.QueueSize = n
		}
	}
	if val := os.Getenv("UPLOADER_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Queue.Path == "" {
		return fmt.Errorf("queue.path must not be empty")
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("transport.timeout must not be negative")
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("scheduler.pollInterval must be positive")
	}
	if c.Scheduler.RetryInterval <= 0 {
		return fmt.Errorf("scheduler.retryInterval must be positive")
	}
	if c.Cleanup.QueueSize <= 0 {
		return fmt.Errorf("cleanup.queueSize must be positive")
	}
	if c.Cleanup.StopTimeout < 0 {
		return fmt.Errorf("cleanup.stopTimeout must not be negative")
	}
	return nil
}
