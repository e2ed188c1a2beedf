package deck

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/colonyops/taskdeck/internal/core/kv"
	"github.com/colonyops/taskdeck/internal/core/task"
)

// memTasks is an in-memory task.Store.
type memTasks struct {
	mu    sync.Mutex
	tasks map[string]task.Task
	order []string
	next  int
}

var _ task.Store = (*memTasks)(nil)

func newMemTasks(titles ...string) *memTasks {
	m := &memTasks{tasks: make(map[string]task.Task)}
	for _, title := range titles {
		t := task.Task{Title: title}
		_ = m.Save(context.Background(), &t)
	}
	return m
}

func (m *memTasks) List(_ context.Context) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]task.Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id])
	}
	return out, nil
}

func (m *memTasks) Get(_ context.Context, id string) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (m *memTasks) GetMany(_ context.Context, ids []string) (map[string]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]task.Task, len(ids))
	for _, id := range ids {
		if t, ok := m.tasks[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (m *memTasks) Save(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		m.next++
		t.ID = fmt.Sprintf("task%d", m.next)
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if _, ok := m.tasks[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) SaveAll(ctx context.Context, tasks []*task.Task) error {
	for _, t := range tasks {
		if err := m.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *memTasks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(m.tasks, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memTasks) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// memKV is an in-memory kv.KV.
type memKV struct {
	mu      sync.Mutex
	values  map[string][]byte
	expires map[string]time.Time
}

var _ kv.KV = (*memKV)(nil)

func newMemKV() *memKV {
	return &memKV{values: make(map[string][]byte), expires: make(map[string]time.Time)}
}

func (m *memKV) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.values[key]
	if exp := m.expires[key]; ok && !exp.IsZero() && time.Now().After(exp) {
		ok = false
	}
	if !ok {
		return fmt.Errorf("kv get %s: %w", key, sql.ErrNoRows)
	}
	return json.Unmarshal(data, dest)
}

func (m *memKV) Set(_ context.Context, key string, value any) error {
	return m.put(key, value, time.Time{})
}

func (m *memKV) SetTTL(_ context.Context, key string, value any, ttl time.Duration) error {
	return m.put(key, value, time.Now().Add(ttl))
}

func (m *memKV) put(key string, value any, expires time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	m.expires[key] = expires
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.expires, key)
	return nil
}

func (m *memKV) ListKeys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
