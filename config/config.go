package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Orchestrator OrchestratorConfig  `mapstructure:"orchestrator"`
	Sandbox      SandboxConfig       `mapstructure:"sandbox"`
	Notifier     NotifierConfig      `mapstructure:"notifier"`
	Logging      LoggingConfig       `mapstructure:"logging"`
	Languages    map[string]Language `mapstructure:"languages"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// OrchestratorConfig holds admission and job-tracking configuration
type OrchestratorConfig struct {
	// MaxJobs is the admission ceiling on concurrently tracked jobs.
	MaxJobs int `mapstructure:"max_jobs"`
	// JobTimeoutSec bounds the container-running, awaiting-callback window.
	JobTimeoutSec int `mapstructure:"job_timeout_sec"`
}

// SandboxConfig holds per-container sandbox configuration
type SandboxConfig struct {
	// Memory and ScratchSize are human-readable sizes ("256m", "1g").
	Memory      string `mapstructure:"memory"`
	ScratchSize string `mapstructure:"scratch_size"`
	// CPUQuota is a fraction of the scheduler period, e.g. 0.5 for half a core.
	CPUQuota         float64 `mapstructure:"cpu_quota"`
	PidsLimit        int64   `mapstructure:"pids_limit"`
	RunnerPort       int     `mapstructure:"runner_port"`
	HealthPath       string  `mapstructure:"health_path"`
	BootWaitSec      int     `mapstructure:"boot_wait_sec"`
	HealthIntervalMS int     `mapstructure:"health_interval_ms"`
	StopGraceSec     int     `mapstructure:"stop_grace_sec"`
	// CallbackURL is the address runners report results to; it must be
	// reachable from inside a container.
	CallbackURL string `mapstructure:"callback_url"`
}

// NotifierConfig holds backend notification configuration
type NotifierConfig struct {
	URL           string `mapstructure:"url"`
	MaxElapsedSec int    `mapstructure:"max_elapsed_sec"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// Language holds per-language runner settings
type Language struct {
	Image string `mapstructure:"image"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("orchestrator.max_jobs", 10)
	viper.SetDefault("orchestrator.job_timeout_sec", 120)

	viper.SetDefault("sandbox.memory", "256m")
	viper.SetDefault("sandbox.scratch_size", "64m")
	viper.SetDefault("sandbox.cpu_quota", 0.5)
	viper.SetDefault("sandbox.pids_limit", 64)
	viper.SetDefault("sandbox.runner_port", 8000)
	viper.SetDefault("sandbox.health_path", "/healthz")
	viper.SetDefault("sandbox.boot_wait_sec", 30)
	viper.SetDefault("sandbox.health_interval_ms", 1000)
	viper.SetDefault("sandbox.stop_grace_sec", 5)
	viper.SetDefault("sandbox.callback_url", "http://host.docker.internal:8080/api/callbacks")

	viper.SetDefault("notifier.url", "http://localhost:9000/api/results")
	viper.SetDefault("notifier.max_elapsed_sec", 30)

	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	// Language defaults
	viper.SetDefault("languages.python.image", "runbox-runner-python:latest")
	viper.SetDefault("languages.go.image", "runbox-runner-go:latest")
	viper.SetDefault("languages.cpp.image", "runbox-runner-cpp:latest")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got: %d", c.Server.Port)
	}

	if c.Orchestrator.MaxJobs <= 0 {
		return fmt.Errorf("orchestrator.max_jobs must be positive, got: %d", c.Orchestrator.MaxJobs)
	}

	if c.Orchestrator.JobTimeoutSec <= 0 {
		return fmt.Errorf("orchestrator.job_timeout_sec must be positive, got: %d", c.Orchestrator.JobTimeoutSec)
	}

	if _, err := units.RAMInBytes(c.Sandbox.Memory); err != nil {
		return fmt.Errorf("sandbox.memory is not a valid size: %q", c.Sandbox.Memory)
	}

	if _, err := units.RAMInBytes(c.Sandbox.ScratchSize); err != nil {
		return fmt.Errorf("sandbox.scratch_size is not a valid size: %q", c.Sandbox.ScratchSize)
	}

	if c.Sandbox.CPUQuota <= 0 {
		return fmt.Errorf("sandbox.cpu_quota must be positive, got: %f", c.Sandbox.CPUQuota)
	}

	if c.Sandbox.PidsLimit <= 0 {
		return fmt.Errorf("sandbox.pids_limit must be positive, got: %d", c.Sandbox.PidsLimit)
	}

	if c.Sandbox.RunnerPort <= 0 || c.Sandbox.RunnerPort > 65535 {
		return fmt.Errorf("sandbox.runner_port must be in (0, 65535], got: %d", c.Sandbox.RunnerPort)
	}

	if !strings.HasPrefix(c.Sandbox.HealthPath, "/") {
		return fmt.Errorf("sandbox.health_path must start with '/', got: %q", c.Sandbox.HealthPath)
	}

	if c.Sandbox.BootWaitSec <= 0 {
		return fmt.Errorf("sandbox.boot_wait_sec must be positive, got: %d", c.Sandbox.BootWaitSec)
	}

	if c.Sandbox.HealthIntervalMS <= 0 {
		return fmt.Errorf("sandbox.health_interval_ms must be positive, got: %d", c.Sandbox.HealthIntervalMS)
	}

	if c.Sandbox.CallbackURL == "" {
		return fmt.Errorf("sandbox.callback_url must be set")
	}

	if c.Notifier.URL == "" {
		return fmt.Errorf("notifier.url must be set")
	}

	if len(c.Languages) == 0 {
		return fmt.Errorf("at least one language must be configured")
	}
	for lang, l := range c.Languages {
		if l.Image == "" {
			return fmt.Errorf("languages.%s.image must be set", lang)
		}
	}

	return nil
}

// MemoryBytes returns the container memory ceiling in bytes.
func (c *Config) MemoryBytes() int64 {
	n, _ := units.RAMInBytes(c.Sandbox.Memory)
	return n
}

// ScratchBytes returns the scratch mount size in bytes.
func (c *Config) ScratchBytes() int64 {
	n, _ := units.RAMInBytes(c.Sandbox.ScratchSize)
	return n
}

// JobTimeout returns the per-job timeout as a duration
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Orchestrator.JobTimeoutSec) * time.Second
}

// BootWait returns the container boot wait budget as a duration
func (c *Config) BootWait() time.Duration {
	return time.Duration(c.Sandbox.BootWaitSec) * time.Second
}

// HealthInterval returns the health polling interval as a duration
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Sandbox.HealthIntervalMS) * time.Millisecond
}

// StopGrace returns the teardown grace period as a duration
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Sandbox.StopGraceSec) * time.Second
}

// NotifyBudget returns the notifier retry budget as a duration
func (c *Config) NotifyBudget() time.Duration {
	return time.Duration(c.Notifier.MaxElapsedSec) * time.Second
}
