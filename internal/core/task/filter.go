package task

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// filterEnv is what a filter expression sees for each task.
type filterEnv struct {
	ID        string `expr:"id"`
	Title     string `expr:"title"`
	Bucket    string `expr:"bucket"`
	Percent   int    `expr:"percent"`
	Completed bool   `expr:"completed"`
	HasDue    bool   `expr:"has_due"`
	Overdue   bool   `expr:"overdue"`
	// DueInDays counts calendar days from today to the due date; negative
	// when overdue and zero when there is no due date.
	DueInDays int `expr:"due_in_days"`
}

// Filter selects tasks with a boolean expr-lang expression such as
//
//	bucket == "work" && !completed && due_in_days <= 3
//
// A nil Filter matches every task.
type Filter struct {
	src     string
	program *vm.Program
}

// ParseFilter compiles src. An empty src returns a nil Filter. Compile
// errors wrap ErrInvalid.
func ParseFilter(src string) (*Filter, error) {
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: filter %q: %v", ErrInvalid, src, err)
	}
	return &Filter{src: src, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.src
}

// Match reports whether t satisfies the filter, judging due dates against
// now.
func (f *Filter) Match(t Task, now time.Time) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, envOf(t, now))
	if err != nil {
		return false, fmt.Errorf("filter %q on task %s: %w", f.src, t.ID, err)
	}
	return out.(bool), nil
}

// Apply returns the tasks that satisfy the filter, in order.
func (f *Filter) Apply(tasks []Task, now time.Time) ([]Task, error) {
	if f == nil {
		return tasks, nil
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		ok, err := f.Match(t, now)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func envOf(t Task, now time.Time) filterEnv {
	env := filterEnv{
		ID:        t.ID,
		Title:     t.Title,
		Bucket:    t.Bucket,
		Percent:   t.PercentComplete,
		Completed: t.Completed(),
	}
	if t.DueAt != nil {
		env.HasDue = true
		env.DueInDays = daysBetween(now, *t.DueAt)
		env.Overdue = env.DueInDays < 0 && !env.Completed
	}
	return env
}

// daysBetween counts calendar days from the date of from to the date of to,
// both taken in the location of from.
func daysBetween(from, to time.Time) int {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.In(from.Location()).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
