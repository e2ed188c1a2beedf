// Package logging holds the process-wide zerolog setup: component loggers and
// the context fields attached to edits.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentKey is the field naming the subsystem that wrote an event.
const ComponentKey = "cmp"

// Install makes l the global logger, with ContextHook attached.
func Install(l zerolog.Logger) {
	log.Logger = l.Hook(ContextHook{})
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.With().Str(ComponentKey, name).Logger()
}
