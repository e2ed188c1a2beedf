package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_InvalidQueueName(t *testing.T) {
	cfg := validConfig(t)
	cfg.Queue.Name = "My Queue"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Contains(t, fieldErrs[0].Field, "queue.name")
}

func TestValidateDeep_CapacityTooLarge(t *testing.T) {
	cfg := validConfig(t)
	cfg.Queue.Capacity = 500

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs[0].Field, "queue.capacity")
}

func TestValidateDeep_DatabaseErrorsCollected(t *testing.T) {
	cfg := validConfig(t)
	cfg.Database.MaxOpenConns = 0
	cfg.Database.PingRetries = 0

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.DataDir = file

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs[0].Field, "data_dir")
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	err := cfg.ValidateDeep(t.TempDir())

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldErrs[0].Field, "config_file")
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.Checklist.CacheTTL = 0
	cfg.Database.MaxIdleConns = 20

	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "cache_ttl", warnings[0].Item)
	assert.Equal(t, "max_idle_conns", warnings[1].Item)
}

func TestWarnings_SweepOutlivesCache(t *testing.T) {
	cfg := validConfig(t)
	cfg.Checklist.CacheTTL = time.Minute
	cfg.SweepInterval = time.Hour

	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "sweep_interval", warnings[0].Item)
}
