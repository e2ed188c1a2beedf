package logging

import (
	"github.com/rs/zerolog"
)

// ContextHook stamps the Fields of an event's context onto the event.
type ContextHook struct{}

// Run implements zerolog.Hook.
func (ContextHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	f := FromContext(e.GetCtx())

	if f.ResourceID != "" {
		e.Str("resource", f.ResourceID)
	}
	if f.Operation != "" {
		e.Str("op", f.Operation)
	}
	if f.Attempt > 0 {
		e.Int("attempt", f.Attempt)
	}
}
