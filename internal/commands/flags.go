package commands

import (
	"os"
	"path/filepath"

	"github.com/colonyops/taskdeck/internal/core/config"
	"github.com/colonyops/taskdeck/pkg/logutils"
)

// Flags holds the global flags shared by every command.
type Flags struct {
	LogLevel   string
	LogFile    string
	LogPretty  bool
	ConfigPath string
	DataDir    string
	RecoverDB  bool

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// LogOptions returns the logger settings selected by the flags.
func (f *Flags) LogOptions() logutils.Options {
	return logutils.Options{Level: f.LogLevel, File: f.LogFile, Pretty: f.LogPretty}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/taskdeck/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "taskdeck", "config.yaml")
}

// DefaultDataDir returns $XDG_DATA_HOME/taskdeck.
func DefaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "taskdeck")
}

// xdgDir returns the directory named by env, or the fallback under the home
// directory when env is unset.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(append([]string{home}, fallback...)...)
}
