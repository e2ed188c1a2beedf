package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/taskdeck/internal/core/notify"
	"github.com/colonyops/taskdeck/internal/data/db"
)

// NotifyStore keeps notifications in SQLite, newest first.
type NotifyStore struct {
	db *db.DB
}

var _ notify.Store = (*NotifyStore)(nil)

// NewNotifyStore creates a new SQLite-backed notification store.
func NewNotifyStore(db *db.DB) *NotifyStore {
	return &NotifyStore{db: db}
}

// Save stores n and returns its id. A zero CreatedAt is stamped with the
// current time.
func (s *NotifyStore) Save(ctx context.Context, n notify.Notification) (int64, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	id, err := s.db.Queries().InsertNotification(ctx, db.InsertNotificationParams{
		Level:     string(n.Level),
		Source:    n.Source,
		Message:   n.Message,
		CreatedAt: n.CreatedAt.UnixNano(),
	})
	if err != nil {
		return 0, fmt.Errorf("save notification from %s: %w", n.Source, err)
	}
	return id, nil
}

// List returns up to limit notifications, newest first. A non-positive limit
// returns all of them.
func (s *NotifyStore) List(ctx context.Context, limit int) ([]notify.Notification, error) {
	bound := int64(limit)
	if limit <= 0 {
		bound = -1
	}

	rows, err := s.db.Queries().ListNotifications(ctx, bound)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]notify.Notification, len(rows))
	for i, row := range rows {
		out[i] = notify.Notification{
			ID:        row.ID,
			Level:     notify.Level(row.Level),
			Source:    row.Source,
			Message:   row.Message,
			CreatedAt: time.Unix(0, row.CreatedAt),
		}
	}
	return out, nil
}

// Trim keeps the newest keep notifications and returns how many it deleted.
func (s *NotifyStore) Trim(ctx context.Context, keep int) (int64, error) {
	n, err := s.db.Queries().TrimNotifications(ctx, int64(max(keep, 0)))
	if err != nil {
		return 0, fmt.Errorf("trim notifications to %d: %w", keep, err)
	}
	return n, nil
}

// Clear deletes every notification.
func (s *NotifyStore) Clear(ctx context.Context) (int64, error) {
	n, err := s.db.Queries().DeleteAllNotifications(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	return n, nil
}

// Count returns the number of stored notifications.
func (s *NotifyStore) Count(ctx context.Context) (int64, error) {
	count, err := s.db.Queries().CountNotifications(ctx)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}
