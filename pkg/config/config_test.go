package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearUploaderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"UPLOADER_CONFIG_PATH",
		"UPLOADER_QUEUE_PATH",
		"UPLOADER_TRANSPORT_TIMEOUT",
		"UPLOADER_POLL_INTERVAL",
		"UPLOADER_RETRY_INTERVAL",
		"UPLOADER_CLEANUP_QUEUE_SIZE",
		"UPLOADER_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig

	if cfg.Queue.Path != "/var/lib/uploader/queue.json" {
		t.Errorf("Expected default queue path, got '%s'", cfg.Queue.Path)
	}
	if cfg.Transport.Timeout != 5*time.Minute {
		t.Errorf("Expected transport timeout 5m, got %v", cfg.Transport.Timeout)
	}
	if cfg.Scheduler.PollInterval != time.Minute {
		t.Errorf("Expected poll interval 1m, got %v", cfg.Scheduler.PollInterval)
	}
	if cfg.Scheduler.RetryInterval != 15*time.Second {
		t.Errorf("Expected retry interval 15s, got %v", cfg.Scheduler.RetryInterval)
	}
	if cfg.Cleanup.QueueSize != 64 {
		t.Errorf("Expected cleanup queue size 64, got %d", cfg.Cleanup.QueueSize)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected log level INFO, got '%s'", cfg.Logging.Level)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearUploaderEnv(t)

	testConfig := `
queue:
  path: "/tmp/test-queue.json"
transport:
  timeout: 30s
scheduler:
  pollInterval: 2m
  retryInterval: 10s
logging:
  level: "DEBUG"
`
	path := filepath.Join(t.TempDir(), "uploader.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("UPLOADER_CONFIG_PATH", path)

	cfg, loadedFrom, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loadedFrom != path {
		t.Errorf("Expected config loaded from %s, got %s", path, loadedFrom)
	}
	if cfg.Queue.Path != "/tmp/test-queue.json" {
		t.Errorf("Expected queue path from file, got '%s'", cfg.Queue.Path)
	}
	if cfg.Transport.Timeout != 30*time.Second {
		t.Errorf("Expected transport timeout 30s, got %v", cfg.Transport.Timeout)
	}
	if cfg.Scheduler.PollInterval != 2*time.Minute {
		t.Errorf("Expected poll interval 2m, got %v", cfg.Scheduler.PollInterval)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level DEBUG, got '%s'", cfg.Logging.Level)
	}
	// untouched keys keep their defaults
	if cfg.Cleanup.QueueSize != 64 {
		t.Errorf("Expected default cleanup queue size, got %d", cfg.Cleanup.QueueSize)
	}
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	clearUploaderEnv(t)

	testConfig := `
queue:
  path: "/tmp/from-file.json"
`
	path := filepath.Join(t.TempDir(), "uploader.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("UPLOADER_CONFIG_PATH", path)
	t.Setenv("UPLOADER_QUEUE_PATH", "/tmp/from-env.json")
	t.Setenv("UPLOADER_RETRY_INTERVAL", "45s")

	cfg, _, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Queue.Path != "/tmp/from-env.json" {
		t.Errorf("Expected env override for queue path, got '%s'", cfg.Queue.Path)
	}
	if cfg.Scheduler.RetryInterval != 45*time.Second {
		t.Errorf("Expected env override for retry interval, got %v", cfg.Scheduler.RetryInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty queue path", func(c *Config) { c.Queue.Path = "" }, true},
		{"negative transport timeout", func(c *Config) { c.Transport.Timeout = -time.Second }, true},
		{"zero poll interval", func(c *Config) { c.Scheduler.PollInterval = 0 }, true},
		{"zero retry interval", func(c *Config) { c.Scheduler.RetryInterval = 0 }, true},
		{"zero cleanup queue size", func(c *Config) { c.Cleanup.QueueSize = 0 }, true},
		{"negative stop timeout", func(c *Config) { c.Cleanup.StopTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
