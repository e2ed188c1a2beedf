package deck

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/orderlist"
	"github.com/colonyops/taskdeck/internal/core/queue"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/core/versioned"
	"github.com/rs/zerolog"
)

// QueueResourceID returns the resource id of the named focus queue.
func QueueResourceID(name string) string { return "queue/" + name }

// queueEntries presents the persisted queue state as keyed entries. Every
// fetch rehydrates against the live task set, so ids of deleted tasks are
// dropped; the pruned state is written back by the next edit.
type queueEntries struct {
	states   versioned.Store[queue.State]
	tasks    task.Store
	capacity int
	onPrune  func(ctx context.Context, id string, dropped []string)

	mu    sync.Mutex
	stale bool
}

func (q *queueEntries) Fetch(ctx context.Context, id string) (versioned.Resource[[]orderlist.Entry[queue.TaskRef]], error) {
	res, err := q.states.Fetch(ctx, id)
	if err != nil {
		return versioned.Resource[[]orderlist.Entry[queue.TaskRef]]{}, err
	}

	found, err := q.tasks.GetMany(ctx, res.Value.TaskIDs)
	if err != nil {
		return versioned.Resource[[]orderlist.Entry[queue.TaskRef]]{}, versioned.AsTransport("resolve tasks", id, err)
	}

	rehydrated, dropped := queue.Rehydrate(res.Value, q.capacity, func(taskID string) (queue.TaskRef, bool) {
		t, ok := found[taskID]
		return queue.TaskRef{TaskID: taskID, Title: t.Title}, ok
	})
	if len(dropped) > 0 {
		q.setStale(true)
		if q.onPrune != nil {
			q.onPrune(ctx, id, dropped)
		}
	}

	return versioned.Resource[[]orderlist.Entry[queue.TaskRef]]{
		ID:    id,
		Value: rehydrated.List().Entries(),
		Token: res.Token,
	}, nil
}

func (q *queueEntries) Write(ctx context.Context, id string, entries []orderlist.Entry[queue.TaskRef], expectedToken string) (string, error) {
	token, err := q.states.Write(ctx, id, queue.StateOf(entries), expectedToken)
	if err == nil {
		q.setStale(false)
	}
	return token, err
}

func (q *queueEntries) setStale(v bool) {
	q.mu.Lock()
	q.stale = v
	q.mu.Unlock()
}

// Stale reports whether the stored state still holds ids of deleted tasks.
func (q *queueEntries) Stale() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stale
}

// queueAddIntent appends a task to the queue.
type queueAddIntent struct {
	ref queue.TaskRef
}

func (a *queueAddIntent) Name() string     { return "queue-add" }
func (a *queueAddIntent) Structural() bool { return true }

func (a *queueAddIntent) Apply(l *orderlist.List[queue.TaskRef]) (bool, error) {
	if err := queue.Wrap(l).Add(a.ref); err != nil {
		return false, err
	}
	return true, nil
}

func (a *queueAddIntent) Replay(l *orderlist.List[queue.TaskRef]) (bool, error) {
	q := queue.Wrap(l)
	if q.Contains(a.ref.TaskID) {
		return false, nil
	}
	return a.Apply(l)
}

// queuePruneIntent removes a deleted task. It also writes when the task was
// already dropped by rehydration but the stored state still lists it.
type queuePruneIntent struct {
	taskID  string
	entries *queueEntries
}

func (p *queuePruneIntent) Name() string     { return "queue-prune" }
func (p *queuePruneIntent) Structural() bool { return true }

func (p *queuePruneIntent) Apply(l *orderlist.List[queue.TaskRef]) (bool, error) {
	if _, err := l.Remove(p.taskID); err == nil {
		return true, nil
	}
	return p.entries.Stale(), nil
}

func (p *queuePruneIntent) Replay(l *orderlist.List[queue.TaskRef]) (bool, error) {
	return p.Apply(l)
}

// QueueService manages the bounded focus queue.
type QueueService struct {
	name    string
	tasks   task.Store
	entries *queueEntries
	ctrl    *Controller[queue.TaskRef]
	bus     *eventbus.EventBus
	log     zerolog.Logger
}

// NewQueueService creates the service for the named queue. A non-positive
// capacity uses queue.DefaultCapacity.
func NewQueueService(name string, capacity int, states versioned.Store[queue.State], tasks task.Store, opts ControllerOptions) *QueueService {
	if capacity <= 0 {
		capacity = queue.DefaultCapacity
	}
	opts.Capacity = capacity

	s := &QueueService{
		name:  name,
		tasks: tasks,
		bus:   opts.Bus,
		log:   opts.Logger.With().Str("component", "queue-service").Str("queue", name).Logger(),
	}

	s.entries = &queueEntries{
		states:   states,
		tasks:    tasks,
		capacity: capacity,
		onPrune:  s.pruned,
	}
	s.ctrl = NewController[queue.TaskRef](QueueResourceID(name), s.entries, opts)
	return s
}

// Name returns the queue name.
func (s *QueueService) Name() string { return s.name }

// Capacity returns the maximum number of queued tasks.
func (s *QueueService) Capacity() int { return s.ctrl.opts.Capacity }

// Items loads the queue and returns its tasks in order.
func (s *QueueService) Items(ctx context.Context) ([]queue.TaskRef, error) {
	if err := s.ctrl.Load(ctx); err != nil {
		return nil, fmt.Errorf("load queue %s: %w", s.name, err)
	}
	return s.refs(), nil
}

// Add appends a task to the end of the queue. A full queue rejects the task
// and stays unchanged.
func (s *QueueService) Add(ctx context.Context, taskID string) ([]queue.TaskRef, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("queue task %s: %w", taskID, err)
	}

	err = s.ctrl.Apply(ctx, &queueAddIntent{ref: queue.TaskRef{TaskID: t.ID, Title: t.Title}})
	if errors.Is(err, queue.ErrCapacityExceeded) {
		s.log.Info().Str("task", taskID).Int("capacity", s.Capacity()).Msg("queue full, task rejected")
		s.bus.PublishQueueRejected(eventbus.QueueRejectedPayload{
			QueueID:  QueueResourceID(s.name),
			TaskID:   taskID,
			Capacity: s.Capacity(),
		})
	}
	if err != nil {
		return nil, err
	}
	return s.refs(), nil
}

// Remove drops a task from the queue.
func (s *QueueService) Remove(ctx context.Context, taskID string) ([]queue.TaskRef, error) {
	if err := s.ctrl.Remove(ctx, taskID); err != nil {
		return nil, err
	}
	return s.refs(), nil
}

// Move reorders a queued task to position.
func (s *QueueService) Move(ctx context.Context, taskID string, position int) ([]queue.TaskRef, error) {
	if _, err := s.ctrl.Move(ctx, taskID, position); err != nil {
		return nil, err
	}
	return s.refs(), nil
}

// Forget drops a deleted task from the queue and persists the pruned order.
func (s *QueueService) Forget(ctx context.Context, taskID string) error {
	return s.ctrl.Apply(ctx, &queuePruneIntent{taskID: taskID, entries: s.entries})
}

func (s *QueueService) refs() []queue.TaskRef {
	view := s.ctrl.View()
	refs := make([]queue.TaskRef, len(view))
	for i, e := range view {
		refs[i] = e.Value
	}
	return refs
}

func (s *QueueService) pruned(ctx context.Context, id string, dropped []string) {
	s.log.Info().Ctx(ctx).Strs("tasks", dropped).Msg("dropped missing tasks from queue")
	s.bus.PublishQueuePruned(eventbus.QueuePrunedPayload{QueueID: id, TaskIDs: dropped})
}
