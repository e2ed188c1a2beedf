package stores

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/colonyops/taskdeck/internal/core/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveNotifications(t *testing.T, store *NotifyStore, messages ...string) {
	t.Helper()
	base := time.Now()
	for i, msg := range messages {
		_, err := store.Save(context.Background(), notify.Notification{
			Level:     notify.LevelInfo,
			Source:    "queue/focus",
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
}

func TestNotifyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and list", func(t *testing.T) {
		store := NewNotifyStore(openTestDB(t))

		id, err := store.Save(ctx, notify.Notification{
			Level:   notify.LevelWarning,
			Source:  "checklist/t1",
			Message: "could not save move to checklist/t1",
		})
		require.NoError(t, err)
		assert.Positive(t, id)

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, id, items[0].ID)
		assert.Equal(t, notify.LevelWarning, items[0].Level)
		assert.Equal(t, "checklist/t1", items[0].Source)
		assert.False(t, items[0].CreatedAt.IsZero(), "zero CreatedAt is stamped")
	})

	t.Run("list returns newest first within limit", func(t *testing.T) {
		store := NewNotifyStore(openTestDB(t))
		saveNotifications(t, store, "queue pruned", "move rolled back", "queue full")

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "queue full", items[0].Message)
		assert.Equal(t, "queue pruned", items[2].Message)

		items, err = store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "move rolled back", items[1].Message)
	})

	t.Run("trim keeps the newest", func(t *testing.T) {
		store := NewNotifyStore(openTestDB(t))
		var msgs []string
		for i := range 5 {
			msgs = append(msgs, fmt.Sprintf("n%d", i))
		}
		saveNotifications(t, store, msgs...)

		deleted, err := store.Trim(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "n4", items[0].Message)
		assert.Equal(t, "n3", items[1].Message)

		deleted, err = store.Trim(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("clear and count", func(t *testing.T) {
		store := NewNotifyStore(openTestDB(t))

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		saveNotifications(t, store, "a", "b", "c")
		count, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		cleared, err := store.Clear(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), cleared)

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.NotNil(t, items)
	})
}
