// Package config handles configuration loading and validation for taskdeck.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Reconcile policies.
const (
	PolicyReplay  = "replay"
	PolicyDiscard = "discard"
)

var policies = []string{PolicyReplay, PolicyDiscard}

// Config holds the application configuration.
type Config struct {
	Queue         QueueConfig     `yaml:"queue"`
	Reconcile     ReconcileConfig `yaml:"reconcile"`
	Checklist     ChecklistConfig `yaml:"checklist"`
	Database      DatabaseConfig  `yaml:"database"`
	Notifications NotifyConfig    `yaml:"notifications"`
	SweepInterval time.Duration   `yaml:"sweep_interval"`
	DataDir       string          `yaml:"-"` // set by caller, not from config file
}

// QueueConfig configures the focus queue.
type QueueConfig struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
}

// ReconcileConfig selects how conflicting writes are resolved.
type ReconcileConfig struct {
	Policy string `yaml:"policy"` // replay or discard
}

// ChecklistConfig configures task checklists.
type ChecklistConfig struct {
	MaxItems       int           `yaml:"max_items"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	PreloadWorkers int           `yaml:"preload_workers"`
}

// NotifyConfig bounds the stored notification history.
type NotifyConfig struct {
	Keep int `yaml:"keep"`
}

// DatabaseConfig tunes the local SQLite store.
type DatabaseConfig struct {
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
	PingRetries  int           `yaml:"ping_retries"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Queue: QueueConfig{
			Name:     "focus",
			Capacity: 7,
		},
		Reconcile: ReconcileConfig{
			Policy: PolicyReplay,
		},
		Checklist: ChecklistConfig{
			MaxItems:       20,
			CacheTTL:       10 * time.Minute,
			PreloadWorkers: 4,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			BusyTimeout:  5 * time.Second,
			PingRetries:  5,
		},
		Notifications: NotifyConfig{
			Keep: 200,
		},
		SweepInterval: 5 * time.Minute,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Queue.Name == "" {
		c.Queue.Name = defaults.Queue.Name
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = defaults.Queue.Capacity
	}
	if c.Reconcile.Policy == "" {
		c.Reconcile.Policy = defaults.Reconcile.Policy
	}
	if c.Checklist.MaxItems == 0 {
		c.Checklist.MaxItems = defaults.Checklist.MaxItems
	}
	if c.Checklist.PreloadWorkers == 0 {
		c.Checklist.PreloadWorkers = defaults.Checklist.PreloadWorkers
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Database.PingRetries == 0 {
		c.Database.PingRetries = defaults.Database.PingRetries
	}
	if c.Notifications.Keep == 0 {
		c.Notifications.Keep = defaults.Notifications.Keep
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = defaults.SweepInterval
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Queue.Capacity < 1 {
		return fmt.Errorf("queue.capacity must be at least 1")
	}

	if !slices.Contains(policies, c.Reconcile.Policy) {
		return fmt.Errorf("reconcile.policy %q must be one of %v", c.Reconcile.Policy, policies)
	}

	if c.Checklist.MaxItems < 1 {
		return fmt.Errorf("checklist.max_items must be at least 1")
	}

	if c.Checklist.PreloadWorkers < 1 {
		return fmt.Errorf("checklist.preload_workers must be at least 1")
	}

	if c.Checklist.CacheTTL < 0 {
		return fmt.Errorf("checklist.cache_ttl cannot be negative")
	}

	if c.Notifications.Keep < 1 {
		return fmt.Errorf("notifications.keep must be at least 1")
	}

	if c.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval cannot be negative")
	}

	return nil
}
