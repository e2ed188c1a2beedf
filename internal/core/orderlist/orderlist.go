// Package orderlist provides an in-memory list ordered by dense order keys.
//
// List is the only place that computes keys for inserts and moves. Every
// mutation assigns a key to the touched entry alone; the keys of all other
// entries are left untouched, so a move can be persisted as a single field
// change.
package orderlist

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/colonyops/taskdeck/internal/core/orderkey"
)

var (
	// ErrNotFound is returned when an operation references an id absent from the list.
	ErrNotFound = errors.New("list item not found")
	// ErrDuplicateID is returned when inserting an id that is already present.
	ErrDuplicateID = errors.New("duplicate list item id")
	// ErrCapacityExceeded is returned when inserting into a full bounded list.
	ErrCapacityExceeded = errors.New("list capacity exceeded")
	// ErrKeyCollision is returned by CheckIntegrity when two entries share a key.
	ErrKeyCollision = errors.New("order key collision")
)

// Entry pairs a payload with its id and order key.
type Entry[T any] struct {
	ID    string       `json:"id"`
	Key   orderkey.Key `json:"key"`
	Value T            `json:"value"`
}

// List keeps entries sorted by (Key, ID).
type List[T any] struct {
	entries  []Entry[T]
	capacity int // 0 = unbounded
}

// New returns an empty, unbounded list.
func New[T any]() *List[T] {
	return &List[T]{}
}

// NewBounded returns an empty list that holds at most capacity entries.
func NewBounded[T any](capacity int) *List[T] {
	return &List[T]{capacity: max(capacity, 0)}
}

// LoadReport describes repairs made while loading external entries.
type LoadReport struct {
	// Rekeyed lists entries that had a missing or invalid key and were given a
	// fresh one at the tail.
	Rekeyed []string
	// Dropped lists entries discarded as duplicate ids or beyond capacity.
	Dropped []string
}

// Repaired reports whether the loaded list differs from its source.
func (r LoadReport) Repaired() bool {
	return len(r.Rekeyed) > 0 || len(r.Dropped) > 0
}

// FromEntries builds a list from externally sourced entries.
//
// Entries with identical keys are ordered by id so repeated loads are
// deterministic. Entries with a missing or invalid key are placed after the
// last valid entry, in id order, with freshly generated keys. Duplicate ids
// keep the first occurrence. With a capacity, entries beyond it are dropped
// from the tail.
func FromEntries[T any](entries []Entry[T], capacity int) (*List[T], LoadReport, error) {
	l := NewBounded[T](capacity)
	var report LoadReport

	seen := make(map[string]struct{}, len(entries))
	var unkeyed []Entry[T]
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			report.Dropped = append(report.Dropped, e.ID)
			continue
		}
		seen[e.ID] = struct{}{}

		if orderkey.Validate(e.Key) != nil {
			unkeyed = append(unkeyed, e)
			continue
		}
		l.entries = append(l.entries, e)
	}

	slices.SortFunc(l.entries, compareEntries[T])
	slices.SortFunc(unkeyed, func(a, b Entry[T]) int { return cmp.Compare(a.ID, b.ID) })

	for _, e := range unkeyed {
		key, err := orderkey.Between(l.lastKey(), "")
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("rekey %s: %w", e.ID, err)
		}
		e.Key = key
		l.entries = append(l.entries, e)
		report.Rekeyed = append(report.Rekeyed, e.ID)
	}

	if l.capacity > 0 && len(l.entries) > l.capacity {
		for _, e := range l.entries[l.capacity:] {
			report.Dropped = append(report.Dropped, e.ID)
		}
		l.entries = l.entries[:l.capacity]
	}

	return l, report, nil
}

// Len returns the number of entries.
func (l *List[T]) Len() int { return len(l.entries) }

// Capacity returns the maximum size, or 0 when unbounded.
func (l *List[T]) Capacity() int { return l.capacity }

// Full reports whether a bounded list has reached its capacity.
func (l *List[T]) Full() bool {
	return l.capacity > 0 && len(l.entries) >= l.capacity
}

// At returns the entry at index i in key order.
func (l *List[T]) At(i int) Entry[T] { return l.entries[i] }

// IndexOf returns the position of id, or -1.
func (l *List[T]) IndexOf(id string) int {
	return slices.IndexFunc(l.entries, func(e Entry[T]) bool { return e.ID == id })
}

// Get returns the entry for id.
func (l *List[T]) Get(id string) (Entry[T], bool) {
	i := l.IndexOf(id)
	if i < 0 {
		return Entry[T]{}, false
	}
	return l.entries[i], true
}

// Entries returns a copy of the entries in key order.
func (l *List[T]) Entries() []Entry[T] {
	return slices.Clone(l.entries)
}

// IDs returns entry ids in key order.
func (l *List[T]) IDs() []string {
	ids := make([]string, len(l.entries))
	for i, e := range l.entries {
		ids[i] = e.ID
	}
	return ids
}

// All iterates entries in key order. The sequence can be ranged over any
// number of times; each pass reflects the list at the time it starts.
func (l *List[T]) All() iter.Seq2[int, Entry[T]] {
	return func(yield func(int, Entry[T]) bool) {
		for i, e := range slices.Clone(l.entries) {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Values iterates payloads in key order.
func (l *List[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, e := range l.All() {
			if !yield(e.Value) {
				return
			}
		}
	}
}

// Clone returns an independent copy of the list.
func (l *List[T]) Clone() *List[T] {
	return &List[T]{entries: slices.Clone(l.entries), capacity: l.capacity}
}

// InsertAt adds a new entry so that it lands at position. Position is clamped
// to [0, Len()].
func (l *List[T]) InsertAt(id string, value T, position int) (Entry[T], error) {
	if l.IndexOf(id) >= 0 {
		return Entry[T]{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if l.Full() {
		return Entry[T]{}, ErrCapacityExceeded
	}

	key, err := l.keyAt(position)
	if err != nil {
		return Entry[T]{}, err
	}

	e := Entry[T]{ID: id, Key: key, Value: value}
	l.insertSorted(e)
	return e, nil
}

// Append adds a new entry after the last one.
func (l *List[T]) Append(id string, value T) (Entry[T], error) {
	return l.InsertAt(id, value, len(l.entries))
}

// MoveTo moves id so that it lands at position among the remaining entries.
// Position is clamped to [0, Len()-1]. Only the moved entry receives a new
// key. Moving an entry onto its current position is a no-op and keeps its key.
func (l *List[T]) MoveTo(id string, position int) (Entry[T], error) {
	i := l.IndexOf(id)
	if i < 0 {
		return Entry[T]{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	position = clamp(position, 0, len(l.entries)-1)
	if position == i {
		return l.entries[i], nil
	}

	e := l.entries[i]
	l.entries = slices.Delete(l.entries, i, i+1)

	key, err := l.keyAt(position)
	if err != nil {
		l.insertSorted(e)
		return Entry[T]{}, err
	}

	e.Key = key
	l.insertSorted(e)
	return e, nil
}

// Remove deletes id from the list.
func (l *List[T]) Remove(id string) (Entry[T], error) {
	i := l.IndexOf(id)
	if i < 0 {
		return Entry[T]{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e := l.entries[i]
	l.entries = slices.Delete(l.entries, i, i+1)
	return e, nil
}

// Update mutates the payload of id in place. The key is not changed.
func (l *List[T]) Update(id string, fn func(*T)) (Entry[T], error) {
	i := l.IndexOf(id)
	if i < 0 {
		return Entry[T]{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(&l.entries[i].Value)
	return l.entries[i], nil
}

// Neighbors returns the ids immediately above and below id in key order.
// Either is empty at the list boundary.
func (l *List[T]) Neighbors(id string) (above, below string, err error) {
	i := l.IndexOf(id)
	if i < 0 {
		return "", "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if i > 0 {
		above = l.entries[i-1].ID
	}
	if i+1 < len(l.entries) {
		below = l.entries[i+1].ID
	}
	return above, below, nil
}

// CheckIntegrity verifies that entries are sorted, keys are valid and keys
// are pairwise distinct.
func (l *List[T]) CheckIntegrity() error {
	for i, e := range l.entries {
		if err := orderkey.Validate(e.Key); err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}
		if i == 0 {
			continue
		}
		prev := l.entries[i-1]
		switch orderkey.Compare(prev.Key, e.Key) {
		case 0:
			return fmt.Errorf("%w: %s and %s share %q", ErrKeyCollision, prev.ID, e.ID, e.Key)
		case 1:
			return fmt.Errorf("entries out of order at %d: %q > %q", i, prev.Key, e.Key)
		}
	}
	return nil
}

// keyAt computes a key that sorts at position in the current entries.
func (l *List[T]) keyAt(position int) (orderkey.Key, error) {
	position = clamp(position, 0, len(l.entries))

	var low, high orderkey.Key
	if position > 0 {
		low = l.entries[position-1].Key
	}

	// Externally loaded data can contain equal keys. Skip forward to the first
	// strictly greater key so generation never sees inverted bounds; the new
	// entry then lands after the colliding run.
	for j := position; j < len(l.entries); j++ {
		if low == "" || l.entries[j].Key > low {
			high = l.entries[j].Key
			break
		}
	}

	return orderkey.Between(low, high)
}

func (l *List[T]) insertSorted(e Entry[T]) {
	i, _ := slices.BinarySearchFunc(l.entries, e, compareEntries[T])
	l.entries = slices.Insert(l.entries, i, e)
}

func (l *List[T]) lastKey() orderkey.Key {
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].Key
}

func compareEntries[T any](a, b Entry[T]) int {
	if c := orderkey.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
