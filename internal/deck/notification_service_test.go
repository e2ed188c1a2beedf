package deck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/eventbus/testbus"
	"github.com/colonyops/taskdeck/internal/core/notify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memNotifications is an in-memory notify.Store, newest first.
type memNotifications struct {
	mu   sync.Mutex
	list []notify.Notification
	next int64
}

var _ notify.Store = (*memNotifications)(nil)

func (m *memNotifications) Save(_ context.Context, n notify.Notification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	n.ID = m.next
	m.list = append([]notify.Notification{n}, m.list...)
	return n.ID, nil
}

func (m *memNotifications) List(_ context.Context, limit int) ([]notify.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]notify.Notification{}, m.list...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) Trim(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.list) <= keep {
		return 0, nil
	}
	n := int64(len(m.list) - keep)
	m.list = m.list[:keep]
	return n, nil
}

func (m *memNotifications) Clear(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.list))
	m.list = nil
	return n, nil
}

func (m *memNotifications) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.list)), nil
}

func TestNotificationService_RecordsRoutedEvents(t *testing.T) {
	tb := testbus.New(t)
	store := &memNotifications{}
	svc := NewNotificationService(store, tb.EventBus, 0, zerolog.Nop())
	eventbus.NewNotificationRouter(tb.EventBus).Register()

	tb.PublishQueueRejected(eventbus.QueueRejectedPayload{QueueID: "focus", TaskID: "t8", Capacity: 7})

	ctx := context.Background()
	require.Eventually(t, func() bool {
		n, _ := svc.Count(ctx)
		return n == 1
	}, time.Second, 5*time.Millisecond)

	list, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notify.LevelInfo, list[0].Level)
	assert.Equal(t, "focus", list[0].Source)
	assert.Contains(t, list[0].Message, "focus queue is full")

	cleared, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationService_KeepsNewest(t *testing.T) {
	tb := testbus.New(t)
	store := &memNotifications{}
	svc := NewNotificationService(store, tb.EventBus, 2, zerolog.Nop())

	for _, msg := range []string{"first", "second", "third"} {
		tb.PublishNotificationPublished(eventbus.NotificationPublishedPayload{
			Level:   notify.LevelInfo,
			Source:  "focus",
			Message: msg,
		})
	}

	ctx := context.Background()
	require.Eventually(t, func() bool {
		list, _ := svc.List(ctx, 0)
		return len(list) == 2 && list[0].Message == "third"
	}, time.Second, 5*time.Millisecond)

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "third", list[0].Message)
}

func TestNotificationService_ReadOnlyWithoutBus(t *testing.T) {
	store := &memNotifications{}
	_, err := store.Save(context.Background(), notify.Notification{Level: notify.LevelWarning, Message: "old"})
	require.NoError(t, err)

	svc := NewNotificationService(store, nil, 0, zerolog.Nop())
	list, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "old", list[0].Message)
}
