package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger logs bus activity. Published events are logged at debug
// level with the resource they concern; dropped events and subscriber panics
// are logged as warnings and errors.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, payload any) {
		e := logger.Debug().Str("event", string(event))
		withSubject(e, payload).Msg("event published")
	})

	bus.OnDrop(func(event Event, payload any) {
		e := logger.Warn().Str("event", string(event))
		withSubject(e, payload).Msg("event dropped: buffer full")
	})

	bus.OnPanic(func(event Event, _ any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}

// withSubject adds the resource or queue a payload refers to.
func withSubject(e *zerolog.Event, payload any) *zerolog.Event {
	switch p := payload.(type) {
	case ListCommittedPayload:
		return e.Str("resource", p.ResourceID).Bool("reconciled", p.Reconciled)
	case ListConflictedPayload:
		return e.Str("resource", p.ResourceID).Str("policy", p.Policy)
	case ListRolledBackPayload:
		return e.Str("resource", p.ResourceID).Str("operation", p.Operation)
	case QueueRejectedPayload:
		return e.Str("queue", p.QueueID).Str("task", p.TaskID)
	case QueuePrunedPayload:
		return e.Str("queue", p.QueueID).Strs("tasks", p.TaskIDs)
	case NotificationPublishedPayload:
		return e.Str("notify_level", string(p.Level)).Str("source", p.Source)
	default:
		return e
	}
}
