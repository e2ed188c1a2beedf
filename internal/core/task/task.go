// Package task defines the task model mirrored from the external planning store.
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when a task does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrInvalid is returned by Validate.
	ErrInvalid = errors.New("invalid task")
)

// Task is a unit of planned work. Checklists and the focus queue reference
// tasks by ID; neither owns a task's lifecycle.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Bucket          string     `json:"bucket,omitempty"`
	PercentComplete int        `json:"percent_complete"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Completed reports whether the task is done.
func (t Task) Completed() bool { return t.PercentComplete >= 100 }

// Validate trims the title into NFC form and checks the task's fields.
func (t *Task) Validate() error {
	t.Title = norm.NFC.String(strings.TrimSpace(t.Title))
	t.Bucket = strings.TrimSpace(t.Bucket)
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if t.PercentComplete < 0 || t.PercentComplete > 100 {
		return fmt.Errorf("%w: percent complete %d is outside 0..100", ErrInvalid, t.PercentComplete)
	}
	return nil
}

// Store defines the interface for task persistence.
type Store interface {
	// List returns all tasks ordered by created_at.
	List(ctx context.Context) ([]Task, error)

	// Get returns a task by ID. Returns ErrNotFound if the task does not exist.
	Get(ctx context.Context, id string) (Task, error)

	// GetMany returns the tasks that exist among ids, keyed by ID. Missing ids
	// are omitted rather than reported as errors.
	GetMany(ctx context.Context, ids []string) (map[string]Task, error)

	// Save creates or updates a task. The store populates ID, CreatedAt and
	// UpdatedAt when unset.
	Save(ctx context.Context, t *Task) error

	// SaveAll saves every task or none of them.
	SaveAll(ctx context.Context, tasks []*Task) error

	// Delete removes a task. Returns ErrNotFound if the task does not exist.
	Delete(ctx context.Context, id string) error
}
