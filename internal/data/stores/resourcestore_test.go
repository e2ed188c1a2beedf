package stores

import (
	"context"
	"testing"

	"github.com/colonyops/taskdeck/internal/core/checklist"
	"github.com/colonyops/taskdeck/internal/core/orderkey"
	"github.com/colonyops/taskdeck/internal/core/queue"
	"github.com/colonyops/taskdeck/internal/core/versioned"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceStore_ConditionalWrites(t *testing.T) {
	ctx := context.Background()
	store := NewResourceStore(openTestDB(t), "checklist")

	missing, err := store.Fetch(ctx, "checklist/t1")
	require.NoError(t, err)
	assert.False(t, missing.Exists())

	t1, err := store.Write(ctx, "checklist/t1", []byte("v1"), "")
	require.NoError(t, err)
	assert.NotEmpty(t, t1)

	_, err = store.Write(ctx, "checklist/t1", []byte("again"), "")
	require.ErrorIs(t, err, versioned.ErrVersionConflict, "create fails when the resource exists")

	t2, err := store.Write(ctx, "checklist/t1", []byte("v2"), t1)
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)

	_, err = store.Write(ctx, "checklist/t1", []byte("stale"), t1)
	require.ErrorIs(t, err, versioned.ErrVersionConflict)

	var ce *versioned.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, t2, ce.CurrentToken)

	got, err := store.Fetch(ctx, "checklist/t1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Value)
	assert.Equal(t, t2, got.Token)
}

func TestResourceStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	checklists := NewResourceStore(database, "checklist")
	queues := NewResourceStore(database, "queue")

	_, err := checklists.Write(ctx, "checklist/a", []byte("x"), "")
	require.NoError(t, err)
	_, err = checklists.Write(ctx, "checklist/b", []byte("x"), "")
	require.NoError(t, err)
	_, err = queues.Write(ctx, "queue/focus", []byte("x"), "")
	require.NoError(t, err)

	ids, err := checklists.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"checklist/a", "checklist/b"}, ids)

	require.NoError(t, checklists.Delete(ctx, "checklist/a"))
	ids, err = checklists.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"checklist/b"}, ids)
}

func TestResourceStore_TransportErrorOnClosedDB(t *testing.T) {
	database := openTestDB(t)
	store := NewResourceStore(database, "checklist")
	require.NoError(t, database.Close())

	_, err := store.Fetch(context.Background(), "checklist/t1")
	require.ErrorIs(t, err, versioned.ErrTransport)

	_, err = store.Write(context.Background(), "checklist/t1", []byte("x"), "")
	require.ErrorIs(t, err, versioned.ErrTransport)
}

func TestChecklistStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewChecklistStore(NewResourceStore(openTestDB(t), "checklist"))

	empty, err := store.Fetch(ctx, "checklist/t1")
	require.NoError(t, err)
	assert.Empty(t, empty.Value)

	keys := orderkey.Sequence(2)
	entries := []checklist.Entry{
		{ID: "i1", Key: keys[0], Value: checklist.Item{Title: "outline"}},
		{ID: "i2", Key: keys[1], Value: checklist.Item{Title: "review", Checked: true}},
	}
	token, err := store.Write(ctx, "checklist/t1", entries, "")
	require.NoError(t, err)

	got, err := store.Fetch(ctx, "checklist/t1")
	require.NoError(t, err)
	assert.Equal(t, token, got.Token)
	assert.Equal(t, entries, got.Value)
}

func TestQueueStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewQueueStore(NewResourceStore(openTestDB(t), "queue"))

	state := queue.State{TaskIDs: []string{"t3", "t1"}}
	token, err := store.Write(ctx, "queue/focus", state, "")
	require.NoError(t, err)

	got, err := store.Fetch(ctx, "queue/focus")
	require.NoError(t, err)
	assert.Equal(t, token, got.Token)
	assert.Equal(t, state, got.Value)
}
