package deck

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/notify"
	"github.com/rs/zerolog"
)

// DefaultNotificationKeep is the history size used when none is configured.
const DefaultNotificationKeep = 200

// NotificationService records published notifications so they can be listed
// after the command that raised them has exited. Only the newest keep
// notifications are retained.
type NotificationService struct {
	store notify.Store
	keep  int
	log   zerolog.Logger
	now   func() time.Time
}

// NewNotificationService creates the service and subscribes it to bus. A nil
// bus leaves the service read-only.
func NewNotificationService(store notify.Store, bus *eventbus.EventBus, keep int, log zerolog.Logger) *NotificationService {
	if keep <= 0 {
		keep = DefaultNotificationKeep
	}
	s := &NotificationService{
		store: store,
		keep:  keep,
		log:   log.With().Str("component", "notification-service").Logger(),
		now:   time.Now,
	}
	if bus != nil {
		bus.SubscribeNotificationPublished(s.record)
	}
	return s
}

func (s *NotificationService) record(p eventbus.NotificationPublishedPayload) {
	ctx := context.Background()
	n := notify.Notification{Level: p.Level, Source: p.Source, Message: p.Message, CreatedAt: s.now()}
	if _, err := s.store.Save(ctx, n); err != nil {
		s.log.Error().Err(err).Str("source", p.Source).Str("message", p.Message).Msg("failed to save notification")
		return
	}
	s.log.Debug().Str("notify_level", string(p.Level)).Str("source", p.Source).Msg(p.Message)

	trimmed, err := s.store.Trim(ctx, s.keep)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to trim notification history")
		return
	}
	if trimmed > 0 {
		s.log.Debug().Int64("trimmed", trimmed).Int("keep", s.keep).Msg("notification history trimmed")
	}
}

// List returns up to limit saved notifications, newest first. A non-positive
// limit returns all of them.
func (s *NotificationService) List(ctx context.Context, limit int) ([]notify.Notification, error) {
	ns, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

// Count returns the number of saved notifications.
func (s *NotificationService) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Clear deletes all saved notifications and returns how many there were.
func (s *NotificationService) Clear(ctx context.Context) (int64, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	s.log.Info().Int64("count", n).Msg("notifications cleared")
	return n, nil
}
