// Package storetest provides an in-memory versioned.Store for tests.
//
// Store behaves like a real optimistic-concurrency store and adds hooks to
// simulate concurrent writers, scripted failures and slow writes.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/colonyops/taskdeck/internal/core/versioned"
)

// Store is a thread-safe in-memory versioned.Store.
type Store[T any] struct {
	mu       sync.Mutex
	values   map[string]T
	tokens   map[string]string
	version  int
	clone    func(T) T
	writeErr []error
	fetchErr []error

	// BeforeWrite runs before each write is evaluated, outside the lock. Tests
	// use it to block a write or to inject a concurrent server-side change.
	BeforeWrite func(id string, value T, expectedToken string)

	writes  int
	fetches int
}

var _ versioned.Store[int] = (*Store[int])(nil)

// New returns an empty store. clone deep-copies values crossing the store
// boundary; nil means values are copied by assignment.
func New[T any](clone func(T) T) *Store[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Store[T]{
		values: make(map[string]T),
		tokens: make(map[string]string),
		clone:  clone,
	}
}

// Seed stores a value directly and returns its token.
func (s *Store[T]) Seed(id string, value T) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(id, value)
}

// Mutate applies fn to the stored value as another writer would and returns
// the new token.
func (s *Store[T]) Mutate(id string, fn func(T) T) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(id, fn(s.clone(s.values[id])))
}

// Current returns the stored value and token.
func (s *Store[T]) Current(id string) (T, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone(s.values[id]), s.tokens[id]
}

// FailNextWrite makes the next write return err instead of being evaluated.
// Calls queue up.
func (s *Store[T]) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = append(s.writeErr, err)
}

// FailNextFetch makes the next fetch return err.
func (s *Store[T]) FailNextFetch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = append(s.fetchErr, err)
}

// Writes returns the number of write attempts.
func (s *Store[T]) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Fetches returns the number of fetch attempts.
func (s *Store[T]) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Fetch implements versioned.Store.
func (s *Store[T]) Fetch(_ context.Context, id string) (versioned.Resource[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches++
	if len(s.fetchErr) > 0 {
		err := s.fetchErr[0]
		s.fetchErr = s.fetchErr[1:]
		return versioned.Resource[T]{}, err
	}

	return versioned.Resource[T]{
		ID:    id,
		Value: s.clone(s.values[id]),
		Token: s.tokens[id],
	}, nil
}

// Write implements versioned.Store.
func (s *Store[T]) Write(_ context.Context, id string, value T, expectedToken string) (string, error) {
	if s.BeforeWrite != nil {
		s.BeforeWrite(id, value, expectedToken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	if len(s.writeErr) > 0 {
		err := s.writeErr[0]
		s.writeErr = s.writeErr[1:]
		return "", err
	}

	if current := s.tokens[id]; current != expectedToken {
		return "", &versioned.ConflictError{
			ResourceID:    id,
			ExpectedToken: expectedToken,
			CurrentToken:  current,
		}
	}

	return s.putLocked(id, s.clone(value)), nil
}

func (s *Store[T]) putLocked(id string, value T) string {
	s.version++
	token := fmt.Sprintf("t%d", s.version)
	s.values[id] = value
	s.tokens[id] = token
	return token
}
