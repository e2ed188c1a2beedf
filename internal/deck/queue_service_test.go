package deck

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/eventbus/testbus"
	"github.com/colonyops/taskdeck/internal/core/queue"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/core/versioned/storetest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queueName = "focus"

func cloneState(s queue.State) queue.State {
	return queue.State{TaskIDs: slices.Clone(s.TaskIDs)}
}

func newTestQueue(t *testing.T, tasks *memTasks, seed ...string) (*QueueService, *storetest.Store[queue.State], *testbus.Bus) {
	t.Helper()
	states := storetest.New(cloneState)
	if len(seed) > 0 {
		states.Seed(QueueResourceID(queueName), queue.State{TaskIDs: seed})
	}
	tb := testbus.New(t)
	svc := NewQueueService(queueName, 0, states, tasks, ControllerOptions{
		Logger: zerolog.Nop(),
		Bus:    tb.EventBus,
	})
	return svc, states, tb
}

func refIDs(refs []queue.TaskRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.TaskID
	}
	return out
}

func TestQueueService_AddResolvesTitles(t *testing.T) {
	tasks := newMemTasks("write report", "call bank")
	svc, states, _ := newTestQueue(t, tasks)

	_, err := svc.Add(context.Background(), "task2")
	require.NoError(t, err)
	refs, err := svc.Add(context.Background(), "task1")
	require.NoError(t, err)

	assert.Equal(t, []queue.TaskRef{
		{TaskID: "task2", Title: "call bank"},
		{TaskID: "task1", Title: "write report"},
	}, refs)

	stored, _ := states.Current(QueueResourceID(queueName))
	assert.Equal(t, []string{"task2", "task1"}, stored.TaskIDs)
}

func TestQueueService_FullQueueRejects(t *testing.T) {
	tasks := newMemTasks("1", "2", "3", "4", "5", "6", "7", "8")
	svc, states, tb := newTestQueue(t, tasks)
	ctx := context.Background()

	all := tasks.ids()
	for _, id := range all[:7] {
		_, err := svc.Add(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 7, svc.Capacity())

	_, err := svc.Add(ctx, all[7])
	require.ErrorIs(t, err, queue.ErrCapacityExceeded)
	assert.Equal(t, KindCapacityExceeded, KindOf(err))

	items, err := svc.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, all[:7], refIDs(items))
	assert.Equal(t, 7, states.Writes())

	tb.AssertPublished(t, eventbus.EventQueueRejected)
	rejected := testbus.Payloads[eventbus.QueueRejectedPayload](tb)
	require.Len(t, rejected, 1)
	assert.Equal(t, all[7], rejected[0].TaskID)
	assert.Equal(t, 7, rejected[0].Capacity)
}

func TestQueueService_AddTwice(t *testing.T) {
	tasks := newMemTasks("a")
	svc, _, _ := newTestQueue(t, tasks)

	_, err := svc.Add(context.Background(), "task1")
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "task1")
	require.ErrorIs(t, err, queue.ErrAlreadyQueued)
}

func TestQueueService_AddUnknownTask(t *testing.T) {
	svc, states, _ := newTestQueue(t, newMemTasks())

	_, err := svc.Add(context.Background(), "missing")
	require.ErrorIs(t, err, task.ErrNotFound)
	assert.Zero(t, states.Writes())
}

func TestQueueService_MoveAndRemove(t *testing.T) {
	tasks := newMemTasks("a", "b", "c")
	svc, states, _ := newTestQueue(t, tasks, "task1", "task2", "task3")
	ctx := context.Background()

	refs, err := svc.Move(ctx, "task3", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"task3", "task1", "task2"}, refIDs(refs))

	refs, err = svc.Remove(ctx, "task1")
	require.NoError(t, err)
	assert.Equal(t, []string{"task3", "task2"}, refIDs(refs))

	stored, _ := states.Current(QueueResourceID(queueName))
	assert.Equal(t, []string{"task3", "task2"}, stored.TaskIDs)
}

func TestQueueService_PrunesDeletedTasks(t *testing.T) {
	tasks := newMemTasks("a", "b")
	svc, states, tb := newTestQueue(t, tasks, "task1", "gone", "task2")
	ctx := context.Background()

	items, err := svc.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"task1", "task2"}, refIDs(items))

	tb.AssertPublished(t, eventbus.EventQueuePruned)
	pruned := testbus.Payloads[eventbus.QueuePrunedPayload](tb)
	require.Len(t, pruned, 1)
	assert.Equal(t, []string{"gone"}, pruned[0].TaskIDs)

	// Reading never writes; the stale id stays until the next edit.
	stored, _ := states.Current(QueueResourceID(queueName))
	assert.Equal(t, []string{"task1", "gone", "task2"}, stored.TaskIDs)

	require.NoError(t, svc.Forget(ctx, "gone"))
	stored, _ = states.Current(QueueResourceID(queueName))
	assert.Equal(t, []string{"task1", "task2"}, stored.TaskIDs)
}

func TestQueueService_ForgetUnqueuedTask(t *testing.T) {
	tasks := newMemTasks("a")
	svc, states, _ := newTestQueue(t, tasks, "task1")

	require.NoError(t, svc.Forget(context.Background(), "other"))
	assert.Zero(t, states.Writes())
}

func TestQueueService_ForgetQueuedTask(t *testing.T) {
	tasks := newMemTasks("a", "b")
	svc, states, tb := newTestQueue(t, tasks, "task1", "task2")
	ctx := context.Background()

	_, err := svc.Items(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Forget(ctx, "task1"))
	stored, _ := states.Current(QueueResourceID(queueName))
	assert.Equal(t, []string{"task2"}, stored.TaskIDs)
	tb.AssertNotPublished(t, eventbus.EventQueuePruned, 20*time.Millisecond)
}

func TestQueueService_ConcurrentAddIsReplayed(t *testing.T) {
	tasks := newMemTasks("a", "b", "c")
	svc, states, _ := newTestQueue(t, tasks, "task1")
	ctx := context.Background()

	_, err := svc.Items(ctx)
	require.NoError(t, err)

	// Another client queues task2 before our write lands.
	first := true
	states.BeforeWrite = func(string, queue.State, string) {
		if first {
			first = false
			states.Mutate(QueueResourceID(queueName), func(s queue.State) queue.State {
				s.TaskIDs = append(s.TaskIDs, "task2")
				return s
			})
		}
	}

	refs, err := svc.Add(ctx, "task3")
	require.NoError(t, err)
	assert.Equal(t, []string{"task1", "task2", "task3"}, refIDs(refs))
}
