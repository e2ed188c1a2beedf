package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPaths_FollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")

	assert.Equal(t, filepath.Join("/cfg", "taskdeck", "config.yaml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/data", "taskdeck"), DefaultDataDir())
}

func TestDefaultPaths_FallBackToHome(t *testing.T) {
	t.Setenv("HOME", "/home/ada")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	assert.Equal(t, filepath.Join("/home/ada", ".config", "taskdeck", "config.yaml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/home/ada", ".local", "share", "taskdeck"), DefaultDataDir())
}

func TestFlags_LogOptions(t *testing.T) {
	f := &Flags{LogLevel: "debug", LogFile: "/tmp/x.log", LogPretty: true}
	opts := f.LogOptions()
	assert.Equal(t, "debug", opts.Level)
	assert.Equal(t, "/tmp/x.log", opts.File)
	assert.True(t, opts.Pretty)
}
