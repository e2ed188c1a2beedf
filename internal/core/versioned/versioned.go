// Package versioned defines resources held by an external store that uses
// optimistic concurrency: every read returns a token and every write must
// present the token it last observed.
package versioned

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrVersionConflict is matched by errors.Is for any rejected conditional write.
	ErrVersionConflict = errors.New("version conflict")
	// ErrTransport is matched by errors.Is for read/write failures other than conflicts.
	ErrTransport = errors.New("transport failure")
	// ErrNotFound is returned when a resource does not exist and cannot be created implicitly.
	ErrNotFound = errors.New("resource not found")
)

// Resource is a value together with the concurrency token the store assigned
// when it was last read or written. An empty Token means the resource does
// not exist yet.
type Resource[T any] struct {
	ID    string
	Value T
	Token string
}

// Exists reports whether the store has ever accepted a write for the resource.
func (r Resource[T]) Exists() bool { return r.Token != "" }

// Store is the external, versioned store adapter.
type Store[T any] interface {
	// Fetch returns the current value and token. A missing resource is returned
	// with the zero value and an empty token.
	Fetch(ctx context.Context, id string) (Resource[T], error)

	// Write replaces the value if the current token equals expectedToken and
	// returns the new token. An empty expectedToken only succeeds when the
	// resource does not exist. A mismatch returns a *ConflictError.
	Write(ctx context.Context, id string, value T, expectedToken string) (string, error)
}

// ConflictError reports a conditional write rejected because the local view is stale.
type ConflictError struct {
	ResourceID    string
	ExpectedToken string
	CurrentToken  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s: expected token %q, current %q", e.ResourceID, e.ExpectedToken, e.CurrentToken)
}

// Is matches ErrVersionConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// TransportError wraps a failed read or write that was not a conflict.
type TransportError struct {
	Op         string
	ResourceID string
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ResourceID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// AsTransport wraps err as a TransportError unless it already is one or is a conflict.
func AsTransport(op, resourceID string, err error) error {
	if err == nil || errors.Is(err, ErrTransport) || errors.Is(err, ErrVersionConflict) {
		return err
	}
	return &TransportError{Op: op, ResourceID: resourceID, Err: err}
}

// State is the lifecycle of an edit against a versioned resource.
type State int

const (
	// StateClean means the local value equals the last known server value.
	StateClean State = iota
	// StateOptimisticallyApplied means the local value was changed and not yet sent.
	StateOptimisticallyApplied
	// StateCommitting means a conditional write is in flight.
	StateCommitting
	// StateCommitted means the server accepted the write.
	StateCommitted
	// StateConflicted means the server rejected the write on a token mismatch.
	StateConflicted
	// StateFailed means the write failed for another reason and was rolled back.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateOptimisticallyApplied:
		return "optimistically-applied"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateConflicted:
		return "conflicted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
