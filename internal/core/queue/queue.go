// Package queue implements the bounded focus queue: a short, user-ordered
// list of task references.
package queue

import (
	"errors"
	"fmt"

	"github.com/colonyops/taskdeck/internal/core/orderkey"
	"github.com/colonyops/taskdeck/internal/core/orderlist"
)

// DefaultCapacity is the number of tasks the focus queue holds.
const DefaultCapacity = 7

var (
	// ErrCapacityExceeded is returned by Add when the queue is full. It is the
	// same sentinel as orderlist.ErrCapacityExceeded.
	ErrCapacityExceeded = orderlist.ErrCapacityExceeded
	// ErrAlreadyQueued is returned by Add when the task is already in the queue.
	ErrAlreadyQueued = errors.New("task already queued")
)

// TaskRef is a weak reference to a task. Title is a display copy resolved at
// load time and is never persisted.
type TaskRef struct {
	TaskID string `json:"task_id"`
	Title  string `json:"-"`
}

// State is the durable shape of a queue: task ids in order.
type State struct {
	TaskIDs []string `json:"task_ids"`
}

// Resolver looks up a task id in the live task set.
type Resolver func(taskID string) (TaskRef, bool)

// Queue is a capacity-bounded ordered list of task references.
type Queue struct {
	list *orderlist.List[TaskRef]
}

// New returns an empty queue. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{list: orderlist.NewBounded[TaskRef](capacity)}
}

// Wrap returns a Queue view over an existing bounded list. Mutations through
// the view change l.
func Wrap(l *orderlist.List[TaskRef]) *Queue {
	return &Queue{list: l}
}

// Entries converts a durable state into keyed list entries without resolving
// ids. Keys are generated deterministically from the order.
func Entries(state State) []orderlist.Entry[TaskRef] {
	keys := orderkey.Sequence(len(state.TaskIDs))
	entries := make([]orderlist.Entry[TaskRef], len(state.TaskIDs))
	for i, id := range state.TaskIDs {
		entries[i] = orderlist.Entry[TaskRef]{ID: id, Key: keys[i], Value: TaskRef{TaskID: id}}
	}
	return entries
}

// StateOf extracts the durable state from list entries in key order.
func StateOf(entries []orderlist.Entry[TaskRef]) State {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return State{TaskIDs: ids}
}

// Rehydrate rebuilds a queue from its durable state. Ids the resolver does
// not know are dropped and returned; duplicate ids keep the first position.
// The same state and task set always produce the same queue.
func Rehydrate(state State, capacity int, resolve Resolver) (*Queue, []string) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	var (
		refs    []TaskRef
		dropped []string
		seen    = make(map[string]struct{}, len(state.TaskIDs))
	)
	for _, id := range state.TaskIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ref, ok := resolve(id)
		if !ok {
			dropped = append(dropped, id)
			continue
		}
		ref.TaskID = id
		refs = append(refs, ref)
	}

	if len(refs) > capacity {
		for _, ref := range refs[capacity:] {
			dropped = append(dropped, ref.TaskID)
		}
		refs = refs[:capacity]
	}

	keys := orderkey.Sequence(len(refs))
	entries := make([]orderlist.Entry[TaskRef], len(refs))
	for i, ref := range refs {
		entries[i] = orderlist.Entry[TaskRef]{ID: ref.TaskID, Key: keys[i], Value: ref}
	}

	// Keys are fresh and ids unique, so loading cannot need repairs.
	l, _, _ := orderlist.FromEntries(entries, capacity)
	return &Queue{list: l}, dropped
}

// List returns the underlying ordered list.
func (q *Queue) List() *orderlist.List[TaskRef] { return q.list }

// Len returns the number of queued tasks.
func (q *Queue) Len() int { return q.list.Len() }

// Capacity returns the maximum number of queued tasks.
func (q *Queue) Capacity() int { return q.list.Capacity() }

// Full reports whether Add would be rejected for capacity.
func (q *Queue) Full() bool { return q.list.Full() }

// Contains reports whether taskID is queued.
func (q *Queue) Contains(taskID string) bool { return q.list.IndexOf(taskID) >= 0 }

// Add appends ref to the end of the queue. A full queue is left unchanged and
// ErrCapacityExceeded is returned; nothing is evicted.
func (q *Queue) Add(ref TaskRef) error {
	if q.Contains(ref.TaskID) {
		return fmt.Errorf("%w: %s", ErrAlreadyQueued, ref.TaskID)
	}
	if q.Full() {
		return fmt.Errorf("%w: queue holds %d tasks", ErrCapacityExceeded, q.Capacity())
	}
	if _, err := q.list.Append(ref.TaskID, ref); err != nil {
		return err
	}
	return nil
}

// Remove drops taskID from the queue.
func (q *Queue) Remove(taskID string) error {
	_, err := q.list.Remove(taskID)
	return err
}

// MoveTo reorders taskID to position.
func (q *Queue) MoveTo(taskID string, position int) error {
	_, err := q.list.MoveTo(taskID, position)
	return err
}

// IDs returns queued task ids in order.
func (q *Queue) IDs() []string { return q.list.IDs() }

// Refs returns queued references in order.
func (q *Queue) Refs() []TaskRef {
	refs := make([]TaskRef, 0, q.list.Len())
	for ref := range q.list.Values() {
		refs = append(refs, ref)
	}
	return refs
}

// State returns the durable representation.
func (q *Queue) State() State {
	return State{TaskIDs: q.IDs()}
}
