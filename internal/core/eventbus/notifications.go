package eventbus

import (
	"fmt"

	"github.com/colonyops/taskdeck/internal/core/notify"
)

// NotificationRouter maps domain events to user-facing notifications.
type NotificationRouter struct {
	bus *EventBus
}

// NewNotificationRouter constructs a router for event-to-notification mappings.
func NewNotificationRouter(bus *EventBus) *NotificationRouter {
	return &NotificationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeListRolledBack(func(p ListRolledBackPayload) {
		if p.Reason == "" {
			r.notifyf(notify.LevelWarning, p.ResourceID, "could not save %s to %s", p.Operation, p.ResourceID)
			return
		}
		r.notifyf(notify.LevelWarning, p.ResourceID, "could not save %s to %s: %s", p.Operation, p.ResourceID, p.Reason)
	})

	r.bus.SubscribeQueueRejected(func(p QueueRejectedPayload) {
		r.notifyf(notify.LevelInfo, p.QueueID, "focus queue is full (%d of %d), remove a task first", p.Capacity, p.Capacity)
	})

	r.bus.SubscribeQueuePruned(func(p QueuePrunedPayload) {
		if len(p.TaskIDs) == 0 {
			return
		}
		r.notifyf(notify.LevelInfo, p.QueueID, "removed %d deleted task(s) from %s", len(p.TaskIDs), p.QueueID)
	})
}

func (r *NotificationRouter) notifyf(level notify.Level, source, format string, args ...any) {
	r.bus.PublishNotificationPublished(NotificationPublishedPayload{
		Level:   level,
		Source:  source,
		Message: fmt.Sprintf(format, args...),
	})
}
