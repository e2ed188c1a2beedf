package deck

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/colonyops/taskdeck/internal/core/checklist"
	"github.com/colonyops/taskdeck/internal/core/queue"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/core/versioned/storetest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRemover struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingRemover) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

type taskFixture struct {
	svc        *TaskService
	tasks      *memTasks
	queue      *QueueService
	queueState *storetest.Store[queue.State]
	checklists *ChecklistService
	removed    *recordingRemover
}

func newTaskFixture(t *testing.T) taskFixture {
	t.Helper()
	opts := ControllerOptions{Logger: zerolog.Nop()}
	f := taskFixture{
		tasks:      newMemTasks(),
		queueState: storetest.New(cloneState),
		removed:    &recordingRemover{},
	}
	f.queue = NewQueueService(queueName, 0, f.queueState, f.tasks, opts)
	f.checklists = NewChecklistService(storetest.New(slices.Clone[[]checklist.Entry]), f.tasks, nil, ChecklistOptions{}, opts)
	f.svc = NewTaskService(f.tasks, f.queue, f.checklists, f.removed, zerolog.Nop())
	return f
}

func TestTaskService_Create(t *testing.T) {
	f := newTaskFixture(t)

	created, err := f.svc.Create(context.Background(), task.Task{ID: "ignored", Title: "  plan sprint "})
	require.NoError(t, err)
	assert.Equal(t, "task1", created.ID)
	assert.Equal(t, "plan sprint", created.Title)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = f.svc.Create(context.Background(), task.Task{Title: ""})
	require.ErrorIs(t, err, task.ErrInvalid)
}

func TestTaskService_SetProgress(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, task.Task{Title: "a"})
	require.NoError(t, err)

	updated, err := f.svc.SetProgress(ctx, created.ID, 100)
	require.NoError(t, err)
	assert.True(t, updated.Completed())

	_, err = f.svc.SetProgress(ctx, created.ID, 150)
	require.ErrorIs(t, err, task.ErrInvalid)

	_, err = f.svc.SetProgress(ctx, "missing", 10)
	require.ErrorIs(t, err, task.ErrNotFound)
}

func TestTaskService_DeleteCleansUp(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, task.Task{Title: "a"})
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, task.Task{Title: "b"})
	require.NoError(t, err)

	_, err = f.queue.Add(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.queue.Add(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.checklists.Add(ctx, a.ID, "step", -1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, a.ID))

	stored, _ := f.queueState.Current(QueueResourceID(queueName))
	assert.Equal(t, []string{b.ID}, stored.TaskIDs)
	assert.Equal(t, []string{ChecklistResourceID(a.ID)}, f.removed.ids)
	assert.Empty(t, f.checklists.Loaded())

	_, err = f.svc.Get(ctx, a.ID)
	require.ErrorIs(t, err, task.ErrNotFound)
}

func TestTaskService_DeleteMissing(t *testing.T) {
	f := newTaskFixture(t)

	err := f.svc.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, task.ErrNotFound)
	assert.Empty(t, f.removed.ids)
}

func TestTaskService_Import(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	imported, err := f.svc.Import(ctx, []task.Task{
		{ID: "ext-1", Title: "from planner"},
		{Title: "no id"},
	})
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, "task1", imported[1].ID)

	got, err := f.svc.Get(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "from planner", got.Title)

	_, err = f.svc.Import(ctx, []task.Task{{Title: "ok"}, {Title: " "}})
	require.ErrorIs(t, err, task.ErrInvalid)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTaskService_Find(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, task.Task{Title: "write report", Bucket: "work", PercentComplete: 100})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, task.Task{Title: "draft plan", Bucket: "work"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, task.Task{Title: "water plants", Bucket: "home"})
	require.NoError(t, err)

	found, err := f.svc.Find(ctx, `bucket == "work" && !completed`)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "draft plan", found[0].Title)

	all, err := f.svc.Find(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.Find(ctx, "percent +")
	require.ErrorIs(t, err, task.ErrInvalid)
	assert.Equal(t, KindInvalid, KindOf(err))
}
