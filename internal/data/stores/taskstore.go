package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/data/db"
	"github.com/colonyops/taskdeck/pkg/randid"
)

// TaskStore implements task.Store using SQLite.
type TaskStore struct {
	db  *db.DB
	now func() time.Time
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(db *db.DB) *TaskStore {
	return &TaskStore{db: db, now: time.Now}
}

// List returns all tasks ordered by creation time.
func (s *TaskStore) List(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.Queries().ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, rowToTask(row))
	}
	return tasks, nil
}

// Get returns a task by ID. Returns task.ErrNotFound if not found.
func (s *TaskStore) Get(ctx context.Context, id string) (task.Task, error) {
	row, err := s.db.Queries().GetTask(ctx, id)
	if IsNotFoundError(err) {
		return task.Task{}, task.ErrNotFound
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return rowToTask(row), nil
}

// GetMany returns the tasks that exist among ids.
func (s *TaskStore) GetMany(ctx context.Context, ids []string) (map[string]task.Task, error) {
	out := make(map[string]task.Task, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, task.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, nil
}

// Save creates or updates a task, filling in ID and timestamps when unset.
func (s *TaskStore) Save(ctx context.Context, t *task.Task) error {
	if err := s.save(ctx, s.db.Queries(), t, s.now()); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// SaveAll saves tasks in one transaction.
func (s *TaskStore) SaveAll(ctx context.Context, tasks []*task.Task) error {
	now := s.now()
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		for _, t := range tasks {
			if err := s.save(ctx, q, t, now); err != nil {
				return fmt.Errorf("save task %q: %w", t.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}

func (s *TaskStore) save(ctx context.Context, q *db.Queries, t *task.Task, now time.Time) error {
	if t.ID == "" {
		t.ID = randid.Generate(8)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	var due sql.NullInt64
	if t.DueAt != nil {
		due = sql.NullInt64{Int64: t.DueAt.UnixNano(), Valid: true}
	}

	return q.SaveTask(ctx, db.SaveTaskParams{
		ID:              t.ID,
		Title:           t.Title,
		Bucket:          t.Bucket,
		PercentComplete: int64(t.PercentComplete),
		DueAt:           due,
		CreatedAt:       t.CreatedAt.UnixNano(),
		UpdatedAt:       t.UpdatedAt.UnixNano(),
	})
}

// Delete removes a task by ID. Returns task.ErrNotFound if not found.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	n, err := s.db.Queries().DeleteTask(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

func rowToTask(row db.Task) task.Task {
	t := task.Task{
		ID:              row.ID,
		Title:           row.Title,
		Bucket:          row.Bucket,
		PercentComplete: int(row.PercentComplete),
		CreatedAt:       time.Unix(0, row.CreatedAt),
		UpdatedAt:       time.Unix(0, row.UpdatedAt),
	}
	if row.DueAt.Valid {
		due := time.Unix(0, row.DueAt.Int64)
		t.DueAt = &due
	}
	return t
}
