package queue

import (
	"fmt"
	"testing"

	"github.com/colonyops/taskdeck/internal/core/orderlist"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullQueue(t *testing.T) *Queue {
	t.Helper()
	q := New(DefaultCapacity)
	for i := range DefaultCapacity {
		require.NoError(t, q.Add(TaskRef{TaskID: fmt.Sprintf("task-%d", i)}))
	}
	return q
}

func TestQueue_AddRejectsWhenFull(t *testing.T) {
	q := fullQueue(t)
	require.True(t, q.Full())

	before := q.List().Entries()

	err := q.Add(TaskRef{TaskID: "one-too-many"})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.ErrorIs(t, err, orderlist.ErrCapacityExceeded)

	assert.Equal(t, DefaultCapacity, q.Len())
	assert.Equal(t, before, q.List().Entries(), "queue must be unchanged after a rejected add")
}

func TestQueue_AddDuplicate(t *testing.T) {
	q := New(3)
	require.NoError(t, q.Add(TaskRef{TaskID: "a"}))

	err := q.Add(TaskRef{TaskID: "a"})
	require.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_RemoveAndMove(t *testing.T) {
	q := New(0)
	assert.Equal(t, DefaultCapacity, q.Capacity())

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Add(TaskRef{TaskID: id}))
	}

	require.NoError(t, q.MoveTo("d", 0))
	assert.Equal(t, []string{"d", "a", "b", "c"}, q.IDs())

	require.NoError(t, q.Remove("a"))
	assert.Equal(t, []string{"d", "b", "c"}, q.IDs())

	require.ErrorIs(t, q.Remove("a"), orderlist.ErrNotFound)
	require.ErrorIs(t, q.MoveTo("zz", 1), orderlist.ErrNotFound)

	// A freed slot can be reused.
	full := fullQueue(t)
	require.NoError(t, full.Remove("task-3"))
	require.NoError(t, full.Add(TaskRef{TaskID: "late"}))
	assert.Equal(t, "late", full.IDs()[DefaultCapacity-1])
}

func TestRehydrate(t *testing.T) {
	live := map[string]string{"a": "Alpha", "b": "Bravo", "d": "Delta"}
	resolve := func(id string) (TaskRef, bool) {
		title, ok := live[id]
		return TaskRef{Title: title}, ok
	}

	state := State{TaskIDs: []string{"d", "gone", "a", "b", "a"}}

	q, dropped := Rehydrate(state, DefaultCapacity, resolve)
	assert.Equal(t, []string{"d", "a", "b"}, q.IDs())
	assert.Equal(t, []string{"gone"}, dropped)
	assert.Equal(t, "Delta", q.Refs()[0].Title)
	require.NoError(t, q.List().CheckIntegrity())
}

func TestRehydrate_Idempotent(t *testing.T) {
	resolve := func(id string) (TaskRef, bool) { return TaskRef{Title: "T " + id}, id != "x" }

	raw, err := json.Marshal(State{TaskIDs: []string{"c", "x", "a", "b"}})
	require.NoError(t, err)

	load := func() *Queue {
		var state State
		require.NoError(t, json.Unmarshal(raw, &state))
		q, _ := Rehydrate(state, DefaultCapacity, resolve)
		return q
	}

	first, second := load(), load()
	assert.Equal(t, first.IDs(), second.IDs())
	assert.Equal(t, first.List().Entries(), second.List().Entries())
	assert.Equal(t, []string{"c", "a", "b"}, first.IDs())
}

func TestRehydrate_OverCapacity(t *testing.T) {
	resolve := func(string) (TaskRef, bool) { return TaskRef{}, true }
	q, dropped := Rehydrate(State{TaskIDs: []string{"a", "b", "c"}}, 2, resolve)
	assert.Equal(t, []string{"a", "b"}, q.IDs())
	assert.Equal(t, []string{"c"}, dropped)
}

func TestEntriesAndStateOf(t *testing.T) {
	state := State{TaskIDs: []string{"x", "y", "z"}}
	entries := Entries(state)
	require.Len(t, entries, 3)
	assert.Less(t, entries[0].Key, entries[1].Key)
	assert.Less(t, entries[1].Key, entries[2].Key)
	assert.Equal(t, state, StateOf(entries))
}
