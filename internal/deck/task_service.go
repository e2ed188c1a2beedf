package deck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
)

// ResourceRemover deletes a stored resource regardless of its token.
type ResourceRemover interface {
	Delete(ctx context.Context, id string) error
}

// TaskService manages the live task set. Deleting a task also drops it from
// the focus queue and deletes its checklist.
type TaskService struct {
	store      task.Store
	queue      *QueueService
	checklists *ChecklistService
	resources  ResourceRemover
	log        zerolog.Logger
}

// NewTaskService creates a new TaskService. resources deletes checklist
// resources and may be nil.
func NewTaskService(store task.Store, queue *QueueService, checklists *ChecklistService, resources ResourceRemover, log zerolog.Logger) *TaskService {
	return &TaskService{
		store:      store,
		queue:      queue,
		checklists: checklists,
		resources:  resources,
		log:        log.With().Str("component", "task-service").Logger(),
	}
}

// Create validates and stores a new task.
func (s *TaskService) Create(ctx context.Context, t task.Task) (task.Task, error) {
	t.ID = ""
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	if err := s.store.Save(ctx, &t); err != nil {
		return task.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.log.Debug().Str("task", t.ID).Msg("task created")
	return t, nil
}

// List returns all tasks.
func (s *TaskService) List(ctx context.Context) ([]task.Task, error) {
	return s.store.List(ctx)
}

// Find returns the tasks matching a filter expression. An empty expression
// matches every task.
func (s *TaskService) Find(ctx context.Context, where string) ([]task.Task, error) {
	f, err := task.ParseFilter(where)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(tasks, time.Now())
}

// Get returns a task by id.
func (s *TaskService) Get(ctx context.Context, id string) (task.Task, error) {
	return s.store.Get(ctx, id)
}

// SetProgress updates the percent complete of a task.
func (s *TaskService) SetProgress(ctx context.Context, id string, percent int) (task.Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	t.PercentComplete = percent
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	if err := s.store.Save(ctx, &t); err != nil {
		return task.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	return t, nil
}

// Delete removes a task together with its queue entry and checklist.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}

	var errs []error
	if s.queue != nil {
		if err := s.queue.Forget(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("prune queue: %w", err))
		}
	}
	if s.checklists != nil {
		s.checklists.Forget(ctx, id)
	}
	if s.resources != nil {
		if err := s.resources.Delete(ctx, ChecklistResourceID(id)); err != nil {
			errs = append(errs, fmt.Errorf("delete checklist: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Warn().Err(err).Str("task", id).Msg("task deleted with leftovers")
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// Import stores tasks as given, keeping their ids. Tasks without an id get
// a new one. Either every task is stored or, if any is invalid, none is.
func (s *TaskService) Import(ctx context.Context, tasks []task.Task) ([]task.Task, error) {
	batch := make([]*task.Task, len(tasks))
	for i := range tasks {
		t := tasks[i]
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("import task %d: %w", i, err)
		}
		batch[i] = &t
	}

	if err := s.store.SaveAll(ctx, batch); err != nil {
		return nil, fmt.Errorf("import tasks: %w", err)
	}

	out := make([]task.Task, len(batch))
	for i, t := range batch {
		out[i] = *t
	}
	s.log.Info().Int("count", len(out)).Msg("tasks imported")
	return out, nil
}
