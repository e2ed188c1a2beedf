package deck

import (
	"math"

	"github.com/colonyops/taskdeck/internal/core/orderlist"
)

// tailPosition clamps to the end of any list.
const tailPosition = math.MaxInt

// Intent is a single user edit expressed so it can be applied to the local
// list and, after a conflict, re-derived against a fresh copy of the list.
type Intent[T any] interface {
	// Name identifies the edit in logs and notifications.
	Name() string
	// Structural reports whether the edit changes membership or order.
	Structural() bool
	// Apply performs the edit on the local list. It reports false when the
	// edit leaves the list unchanged and nothing needs to be written.
	Apply(l *orderlist.List[T]) (bool, error)
	// Replay re-applies the edit onto the fresh server list after a conflict.
	// It reports false when the fresh list already reflects the edit.
	Replay(l *orderlist.List[T]) (bool, error)
}

// anchor records the neighbours an entry had after a local edit so the edit
// can be replayed by meaning rather than by index.
type anchor struct {
	position int
	above    string
	below    string
}

func captureAnchor[T any](l *orderlist.List[T], itemID string, position int) anchor {
	above, below, _ := l.Neighbors(itemID)
	return anchor{position: position, above: above, below: below}
}

// resolvePosition returns where itemID belongs in l, counted among the
// entries other than itemID. The entry goes directly after its old upper
// neighbour if that survived, otherwise directly before its old lower
// neighbour. With both gone it returns to the boundary it was placed at, or
// to its original index clamped to the list.
func resolvePosition[T any](l *orderlist.List[T], itemID string, a anchor) int {
	rest := l.Clone()
	_, _ = rest.Remove(itemID)

	if a.above != "" {
		if i := rest.IndexOf(a.above); i >= 0 {
			return i + 1
		}
	}
	if a.below != "" {
		if i := rest.IndexOf(a.below); i >= 0 {
			return i
		}
	}

	switch {
	case a.above == "":
		return 0
	case a.below == "":
		return rest.Len()
	default:
		return min(max(a.position, 0), rest.Len())
	}
}

type moveIntent[T any] struct {
	itemID   string
	position int
	anchor   anchor
}

func (m *moveIntent[T]) Name() string     { return "move" }
func (m *moveIntent[T]) Structural() bool { return true }

func (m *moveIntent[T]) Apply(l *orderlist.List[T]) (bool, error) {
	return m.moveTo(l, m.position, true)
}

func (m *moveIntent[T]) Replay(l *orderlist.List[T]) (bool, error) {
	return m.moveTo(l, resolvePosition(l, m.itemID, m.anchor), false)
}

func (m *moveIntent[T]) moveTo(l *orderlist.List[T], position int, capture bool) (bool, error) {
	before, ok := l.Get(m.itemID)
	if !ok {
		return false, notFound(m.itemID)
	}

	moved, err := l.MoveTo(m.itemID, position)
	if err != nil {
		return false, err
	}
	if moved.Key == before.Key {
		return false, nil
	}

	if capture {
		m.anchor = captureAnchor(l, m.itemID, m.position)
	}
	return true, nil
}

type insertIntent[T any] struct {
	itemID   string
	value    T
	position int
	anchor   anchor
}

func (in *insertIntent[T]) Name() string     { return "insert" }
func (in *insertIntent[T]) Structural() bool { return true }

func (in *insertIntent[T]) Apply(l *orderlist.List[T]) (bool, error) {
	if _, err := l.InsertAt(in.itemID, in.value, in.position); err != nil {
		return false, err
	}
	in.anchor = captureAnchor(l, in.itemID, in.position)
	return true, nil
}

func (in *insertIntent[T]) Replay(l *orderlist.List[T]) (bool, error) {
	if _, exists := l.Get(in.itemID); exists {
		return false, nil
	}
	if _, err := l.InsertAt(in.itemID, in.value, resolvePosition(l, in.itemID, in.anchor)); err != nil {
		return false, err
	}
	return true, nil
}

type removeIntent[T any] struct {
	itemID string
}

func (r *removeIntent[T]) Name() string     { return "remove" }
func (r *removeIntent[T]) Structural() bool { return true }

func (r *removeIntent[T]) Apply(l *orderlist.List[T]) (bool, error) {
	if _, err := l.Remove(r.itemID); err != nil {
		return false, err
	}
	return true, nil
}

// Replay treats an entry that is already gone as removed.
func (r *removeIntent[T]) Replay(l *orderlist.List[T]) (bool, error) {
	if _, ok := l.Get(r.itemID); !ok {
		return false, nil
	}
	return r.Apply(l)
}

type editIntent[T any] struct {
	itemID string
	fn     func(*T)
}

func (e *editIntent[T]) Name() string     { return "edit" }
func (e *editIntent[T]) Structural() bool { return false }

func (e *editIntent[T]) Apply(l *orderlist.List[T]) (bool, error) {
	if _, err := l.Update(e.itemID, e.fn); err != nil {
		return false, err
	}
	return true, nil
}

func (e *editIntent[T]) Replay(l *orderlist.List[T]) (bool, error) {
	return e.Apply(l)
}
