package deck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/logging"
	"github.com/colonyops/taskdeck/internal/core/orderlist"
	"github.com/colonyops/taskdeck/internal/core/versioned"
	"github.com/colonyops/taskdeck/pkg/kv"
	"github.com/rs/zerolog"
)

// Policy selects how a conflicted write is resolved.
type Policy string

const (
	// PolicyReplay re-applies the edit onto the fresh server list and retries once.
	PolicyReplay Policy = "replay"
	// PolicyDiscard drops the local edit and adopts the server list.
	PolicyDiscard Policy = "discard"
)

// ErrReorderFailed is returned when a structural edit still conflicts after
// one reconciliation attempt. The local list is left equal to the fresh
// server list.
var ErrReorderFailed = errors.New("reorder failed")

// Change is delivered to watchers whenever the controller's local view changes.
type Change[T any] struct {
	ResourceID string
	Entries    []orderlist.Entry[T]
	Token      string
	State      versioned.State
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Policy Policy
	// Capacity bounds the list. Zero means unbounded.
	Capacity int
	Logger   zerolog.Logger
	Bus      *eventbus.EventBus
}

// Controller owns the local copy of one ordered list stored in a
// versioned.Store. Edits are applied optimistically, committed with a
// conditional write and reconciled once on conflict.
//
// At most one edit per resource is in flight; further edits wait for it.
// View, Token and State never block on an in-flight write and observe the
// optimistic list while a commit is pending.
type Controller[T any] struct {
	id    string
	store versioned.Store[[]orderlist.Entry[T]]
	opts  ControllerOptions
	log   zerolog.Logger

	edit chan struct{}

	mu     sync.RWMutex
	list   *orderlist.List[T]
	token  string
	state  versioned.State
	loaded bool

	watchers  *kv.Store[uint64, func(Change[T])]
	watcherID atomic.Uint64
}

// NewController creates a controller for resource id. The list is fetched
// lazily on the first edit or by an explicit Load.
func NewController[T any](id string, store versioned.Store[[]orderlist.Entry[T]], opts ControllerOptions) *Controller[T] {
	if opts.Policy == "" {
		opts.Policy = PolicyReplay
	}
	return &Controller[T]{
		id:       id,
		store:    store,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "reconciler").Str("resource", id).Logger(),
		edit:     make(chan struct{}, 1),
		list:     orderlist.NewBounded[T](opts.Capacity),
		watchers: kv.New[uint64, func(Change[T])](),
	}
}

// ID returns the resource id.
func (c *Controller[T]) ID() string { return c.id }

// Load replaces the local list with the server's current value.
func (c *Controller[T]) Load(ctx context.Context) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()
	return c.refresh(ctx)
}

// View returns the local list in order. While a write is in flight this is
// the optimistic list.
func (c *Controller[T]) View() []orderlist.Entry[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Entries()
}

// Get returns a single entry of the local list.
func (c *Controller[T]) Get(itemID string) (orderlist.Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Get(itemID)
}

// Token returns the token of the last value the server confirmed.
func (c *Controller[T]) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// State returns where the most recent edit is in its lifecycle.
func (c *Controller[T]) State() versioned.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Watch registers fn to be called after every change to the local view. The
// returned function unregisters it.
func (c *Controller[T]) Watch(fn func(Change[T])) func() {
	id := c.watcherID.Add(1)
	c.watchers.Set(id, fn)
	return func() { c.watchers.Remove(id) }
}

// Move repositions itemID to position in the list.
func (c *Controller[T]) Move(ctx context.Context, itemID string, position int) (orderlist.Entry[T], error) {
	return c.applyAndGet(ctx, &moveIntent[T]{itemID: itemID, position: position}, itemID)
}

// Insert adds a new entry at position.
func (c *Controller[T]) Insert(ctx context.Context, itemID string, value T, position int) (orderlist.Entry[T], error) {
	return c.applyAndGet(ctx, &insertIntent[T]{itemID: itemID, value: value, position: position}, itemID)
}

// Append adds a new entry at the tail.
func (c *Controller[T]) Append(ctx context.Context, itemID string, value T) (orderlist.Entry[T], error) {
	return c.applyAndGet(ctx, &insertIntent[T]{itemID: itemID, value: value, position: tailPosition}, itemID)
}

// Remove deletes itemID from the list.
func (c *Controller[T]) Remove(ctx context.Context, itemID string) error {
	return c.Apply(ctx, &removeIntent[T]{itemID: itemID})
}

// Edit changes the payload of itemID. Payload edits are last-writer-wins:
// on conflict fn is re-run against the fresh server value of the entry, so
// fn may be called twice and should only assign fields.
func (c *Controller[T]) Edit(ctx context.Context, itemID string, fn func(*T)) (orderlist.Entry[T], error) {
	return c.applyAndGet(ctx, &editIntent[T]{itemID: itemID, fn: fn}, itemID)
}

func (c *Controller[T]) applyAndGet(ctx context.Context, in Intent[T], itemID string) (orderlist.Entry[T], error) {
	if err := c.Apply(ctx, in); err != nil {
		return orderlist.Entry[T]{}, err
	}
	e, _ := c.Get(itemID)
	return e, nil
}

// Apply runs an edit through the full optimistic lifecycle.
//
// ctx only bounds waiting for a previous edit and the initial fetch. Once
// the optimistic change is visible the write and any reconciliation run to
// completion even if ctx is cancelled.
func (c *Controller[T]) Apply(ctx context.Context, in Intent[T]) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	ctx = logging.WithAttempt(logging.WithOperation(logging.WithResourceID(ctx, c.id), in.Name()), 1)

	if !c.isLoaded() {
		if err := c.refresh(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	snapshot := c.list.Clone()
	token := c.token
	changed, err := in.Apply(c.list)
	if err != nil || !changed {
		c.list = snapshot
		c.mu.Unlock()
		return err
	}
	c.state = versioned.StateOptimisticallyApplied
	entries := c.list.Entries()
	c.mu.Unlock()
	c.notify()

	ctx = context.WithoutCancel(ctx)

	c.setState(versioned.StateCommitting)
	newToken, err := c.store.Write(ctx, c.id, entries, token)
	switch {
	case err == nil:
		c.commit(ctx, nil, newToken, false)
		return nil
	case errors.Is(err, versioned.ErrVersionConflict):
		return c.reconcile(ctx, in, snapshot, token, err)
	default:
		return c.rollback(ctx, in, snapshot, token, versioned.AsTransport("write", c.id, err))
	}
}

// reconcile resolves a rejected write: it fetches the fresh list, re-derives
// the edit onto it according to the policy and retries exactly once.
func (c *Controller[T]) reconcile(ctx context.Context, in Intent[T], snapshot *orderlist.List[T], token string, conflict error) error {
	c.setState(versioned.StateConflicted)

	var ce *versioned.ConflictError
	payload := eventbus.ListConflictedPayload{ResourceID: c.id, ExpectedToken: token, Policy: string(c.opts.Policy)}
	if errors.As(conflict, &ce) {
		payload.CurrentToken = ce.CurrentToken
	}
	c.opts.Bus.PublishListConflicted(payload)
	c.log.Debug().Ctx(ctx).Str("policy", string(c.opts.Policy)).Msg("write conflicted, fetching fresh list")

	fresh, err := c.fetch(ctx)
	if err != nil {
		return c.rollback(ctx, in, snapshot, token, err)
	}

	if c.opts.Policy == PolicyDiscard {
		c.adopt(fresh.list, fresh.token, versioned.StateConflicted)
		return fmt.Errorf("%s discarded: %w", in.Name(), conflict)
	}

	ctx = logging.WithAttempt(ctx, 2)
	replayed := fresh.list.Clone()
	changed, err := in.Replay(replayed)
	if err != nil {
		c.adopt(fresh.list, fresh.token, versioned.StateConflicted)
		c.publishRolledBack(in, err)
		return fmt.Errorf("replay %s: %w", in.Name(), err)
	}
	if !changed {
		// The server already reflects the edit.
		c.adopt(fresh.list, fresh.token, versioned.StateClean)
		return nil
	}

	c.mu.Lock()
	c.list = replayed.Clone()
	c.token = fresh.token
	c.state = versioned.StateCommitting
	c.mu.Unlock()
	c.notify()

	newToken, err := c.store.Write(ctx, c.id, replayed.Entries(), fresh.token)
	switch {
	case err == nil:
		c.commit(ctx, replayed, newToken, true)
		return nil
	case errors.Is(err, versioned.ErrVersionConflict):
		c.adopt(fresh.list, fresh.token, versioned.StateConflicted)
		c.publishRolledBack(in, err)
		c.log.Warn().Ctx(ctx).Err(err).Msg("edit still conflicted after reconciliation")
		if in.Structural() {
			return fmt.Errorf("%w: %w", ErrReorderFailed, err)
		}
		return fmt.Errorf("%s: %w", in.Name(), err)
	default:
		return c.rollback(ctx, in, fresh.list, fresh.token, versioned.AsTransport("write", c.id, err))
	}
}

type fetched[T any] struct {
	list  *orderlist.List[T]
	token string
}

func (c *Controller[T]) fetch(ctx context.Context) (fetched[T], error) {
	res, err := c.store.Fetch(ctx, c.id)
	if err != nil {
		return fetched[T]{}, versioned.AsTransport("fetch", c.id, err)
	}

	l, report, err := orderlist.FromEntries(res.Value, c.opts.Capacity)
	if err != nil {
		return fetched[T]{}, fmt.Errorf("load %s: %w", c.id, err)
	}
	if report.Repaired() {
		c.log.Warn().Ctx(ctx).
			Strs("rekeyed", report.Rekeyed).
			Strs("dropped", report.Dropped).
			Msg("repaired list loaded from store")
	}

	return fetched[T]{list: l, token: res.Token}, nil
}

func (c *Controller[T]) refresh(ctx context.Context) error {
	fresh, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()
	c.adopt(fresh.list, fresh.token, versioned.StateClean)
	return nil
}

func (c *Controller[T]) commit(ctx context.Context, l *orderlist.List[T], token string, reconciled bool) {
	c.mu.Lock()
	if l != nil {
		c.list = l
	}
	c.token = token
	c.state = versioned.StateClean
	c.mu.Unlock()
	c.notify()

	c.log.Debug().Ctx(ctx).Str("token", token).Bool("reconciled", reconciled).Msg("list committed")
	c.opts.Bus.PublishListCommitted(eventbus.ListCommittedPayload{
		ResourceID: c.id,
		Token:      token,
		Reconciled: reconciled,
	})
}

// rollback restores the list the edit started from and reports the failure.
func (c *Controller[T]) rollback(ctx context.Context, in Intent[T], l *orderlist.List[T], token string, cause error) error {
	c.adopt(l, token, versioned.StateFailed)
	c.log.Warn().Ctx(ctx).Err(cause).Msg("edit rolled back")
	c.publishRolledBack(in, cause)
	return fmt.Errorf("%s: %w", in.Name(), cause)
}

func (c *Controller[T]) publishRolledBack(in Intent[T], cause error) {
	c.opts.Bus.PublishListRolledBack(eventbus.ListRolledBackPayload{
		ResourceID: c.id,
		Operation:  in.Name(),
		Reason:     KindOf(cause).Message(),
		Err:        cause,
	})
}

func (c *Controller[T]) adopt(l *orderlist.List[T], token string, state versioned.State) {
	c.mu.Lock()
	c.list = l
	c.token = token
	c.state = state
	c.mu.Unlock()
	c.notify()
}

func (c *Controller[T]) setState(s versioned.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify()
}

func (c *Controller[T]) isLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Controller[T]) notify() {
	if c.watchers.Len() == 0 {
		return
	}

	c.mu.RLock()
	change := Change[T]{
		ResourceID: c.id,
		Entries:    c.list.Entries(),
		Token:      c.token,
		State:      c.state,
	}
	c.mu.RUnlock()

	for _, fn := range c.watchers.Values() {
		fn(change)
	}
}

func (c *Controller[T]) acquire(ctx context.Context) error {
	select {
	case c.edit <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller[T]) release() { <-c.edit }
