// Package notify defines the notifications raised when a background edit
// cannot be saved or the focus queue refuses or drops a task.
package notify

import (
	"context"
	"time"
)

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-facing message about a list edit.
type Notification struct {
	ID    int64 `json:"id"`
	Level Level `json:"level"`
	// Source is the resource the notification concerns, e.g.
	// "checklist/<task>" or "queue/focus".
	Source    string    `json:"source,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications so they outlive the command that raised them.
type Store interface {
	Save(ctx context.Context, n Notification) (int64, error)
	// List returns notifications newest first. A non-positive limit returns all.
	List(ctx context.Context, limit int) ([]Notification, error)
	// Trim deletes all but the newest keep notifications.
	Trim(ctx context.Context, keep int) (int64, error)
	// Clear deletes every notification and returns how many there were.
	Clear(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}
