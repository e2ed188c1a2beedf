// Package eventbus provides a typed publish/subscribe event bus for
// cross-component communication within taskdeck.
package eventbus

import (
	"github.com/colonyops/taskdeck/internal/core/notify"
)

// Events defines all event types and their payload structs.
var Events = map[string]any{
	// Keep list sorted A-Z
	"list.committed":         ListCommittedPayload{},
	"list.conflicted":        ListConflictedPayload{},
	"list.rolled-back":       ListRolledBackPayload{},
	"notification.published": NotificationPublishedPayload{},
	"queue.pruned":           QueuePrunedPayload{},
	"queue.rejected":         QueueRejectedPayload{},
}

// ListCommittedPayload is emitted when a list write is accepted by the store.
type ListCommittedPayload struct {
	ResourceID string
	Token      string
	// Reconciled is set when the write only succeeded after replaying the edit
	// onto a fresh copy of the list.
	Reconciled bool
}

// ListConflictedPayload is emitted when a conditional list write is rejected
// because another writer changed the resource first.
type ListConflictedPayload struct {
	ResourceID    string
	ExpectedToken string
	CurrentToken  string
	Policy        string
}

// ListRolledBackPayload is emitted when an optimistic edit is abandoned and
// the local list is restored.
type ListRolledBackPayload struct {
	ResourceID string
	Operation  string
	Reason     string
	Err        error
}

// QueueRejectedPayload is emitted when a task cannot be added to a full queue.
type QueueRejectedPayload struct {
	QueueID  string
	TaskID   string
	Capacity int
}

// QueuePrunedPayload is emitted when rehydrating a queue drops entries whose
// tasks no longer exist.
type QueuePrunedPayload struct {
	QueueID string
	TaskIDs []string
}

// NotificationPublishedPayload is emitted when a user-facing notification is raised.
type NotificationPublishedPayload struct {
	Level   notify.Level
	Source  string // resource or queue the notification is about
	Message string
}
