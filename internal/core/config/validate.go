package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/hay-kot/criterio"
)

// queueNamePattern keeps queue names usable as resource ids.
var queueNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// maxQueueCapacity is the largest focus queue the store accepts.
const maxQueueCapacity = 50

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// value ranges and file accessibility. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateQueue(),
		c.validateDatabase(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Checklist.CacheTTL == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Checklist",
			Item:     "cache_ttl",
			Message:  "checklist view cache is disabled",
		})
	}

	if c.Checklist.CacheTTL > 0 && c.SweepInterval > 4*c.Checklist.CacheTTL {
		warnings = append(warnings, ValidationWarning{
			Category: "Database",
			Item:     "sweep_interval",
			Message:  "expired cache entries outlive checklist.cache_ttl by a wide margin",
		})
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		warnings = append(warnings, ValidationWarning{
			Category: "Database",
			Item:     "max_idle_conns",
			Message:  fmt.Sprintf("max_idle_conns %d exceeds max_open_conns %d", c.Database.MaxIdleConns, c.Database.MaxOpenConns),
		})
	}

	return warnings
}

func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateQueue() error {
	var errs criterio.FieldErrorsBuilder
	if !queueNamePattern.MatchString(c.Queue.Name) {
		errs = errs.Append("queue.name", fmt.Errorf("%q must match %s", c.Queue.Name, queueNamePattern))
	}
	if c.Queue.Capacity > maxQueueCapacity {
		errs = errs.Append("queue.capacity", fmt.Errorf("%d exceeds the maximum of %d", c.Queue.Capacity, maxQueueCapacity))
	}
	return errs.ToError()
}

func (c *Config) validateDatabase() error {
	var errs criterio.FieldErrorsBuilder
	if c.Database.MaxOpenConns < 1 {
		errs = errs.Append("database.max_open_conns", fmt.Errorf("must be at least 1"))
	}
	if c.Database.MaxIdleConns < 0 {
		errs = errs.Append("database.max_idle_conns", fmt.Errorf("cannot be negative"))
	}
	if c.Database.BusyTimeout < 0 {
		errs = errs.Append("database.busy_timeout", fmt.Errorf("cannot be negative"))
	}
	if c.Database.PingRetries < 1 {
		errs = errs.Append("database.ping_retries", fmt.Errorf("must be at least 1"))
	}
	return errs.ToError()
}
