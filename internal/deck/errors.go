package deck

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/taskdeck/internal/core/checklist"
	"github.com/colonyops/taskdeck/internal/core/orderlist"
	"github.com/colonyops/taskdeck/internal/core/queue"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/core/versioned"
)

// Kind classifies an edit failure for presentation.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalid
	KindCapacityExceeded
	KindVersionConflict
	KindReorderFailed
	KindTransportFailure
	KindCanceled
)

// KindOf classifies err. Wrapped errors are matched, most specific first.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrReorderFailed):
		return KindReorderFailed
	case errors.Is(err, versioned.ErrVersionConflict):
		return KindVersionConflict
	case errors.Is(err, versioned.ErrTransport):
		return KindTransportFailure
	case errors.Is(err, orderlist.ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, orderlist.ErrNotFound),
		errors.Is(err, task.ErrNotFound),
		errors.Is(err, versioned.ErrNotFound):
		return KindNotFound
	case errors.Is(err, orderlist.ErrDuplicateID),
		errors.Is(err, queue.ErrAlreadyQueued),
		errors.Is(err, task.ErrInvalid),
		errors.Is(err, checklist.ErrEmptyTitle),
		errors.Is(err, checklist.ErrTitleTooLong):
		return KindInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindInvalid:
		return "invalid"
	case KindCapacityExceeded:
		return "capacity-exceeded"
	case KindVersionConflict:
		return "version-conflict"
	case KindReorderFailed:
		return "reorder-failed"
	case KindTransportFailure:
		return "transport-failure"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Message is a short, user-facing description of the failure kind.
func (k Kind) Message() string {
	switch k {
	case KindNotFound:
		return "the item no longer exists"
	case KindInvalid:
		return "the change is not valid"
	case KindCapacityExceeded:
		return "the list is full"
	case KindVersionConflict:
		return "someone else changed this list, showing their version"
	case KindReorderFailed:
		return "could not save the new order, the list was refreshed"
	case KindTransportFailure:
		return "could not reach the store, the change was undone"
	case KindCanceled:
		return "the change was canceled"
	default:
		return "something went wrong"
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", orderlist.ErrNotFound, id)
}
