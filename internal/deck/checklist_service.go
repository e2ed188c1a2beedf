package deck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/taskdeck/internal/core/checklist"
	"github.com/colonyops/taskdeck/internal/core/kv"
	"github.com/colonyops/taskdeck/internal/core/orderkey"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/core/versioned"
	registry "github.com/colonyops/taskdeck/pkg/kv"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ChecklistResourceID returns the resource id of a task's checklist.
func ChecklistResourceID(taskID string) string { return "checklist/" + taskID }

// ChecklistItem is one row of a checklist view.
type ChecklistItem struct {
	ID      string       `json:"id"`
	Key     orderkey.Key `json:"key"`
	Title   string       `json:"title"`
	Checked bool         `json:"checked"`
}

// ChecklistView is a snapshot of a task checklist.
type ChecklistView struct {
	TaskID string          `json:"task_id"`
	Items  []ChecklistItem `json:"items"`
	Done   int             `json:"done"`
	Total  int             `json:"total"`
	Token  string          `json:"token"`
	State  string          `json:"state"`
}

// ChecklistOptions configures a ChecklistService.
type ChecklistOptions struct {
	// MaxItems bounds every checklist. Zero uses checklist.DefaultMaxItems.
	MaxItems int
	// CacheTTL is how long a committed view stays in the view cache. Zero
	// disables caching.
	CacheTTL time.Duration
	// PreloadWorkers bounds concurrent loads in Preload.
	PreloadWorkers int
	// Stored lists the resource ids of stored checklists. Optional; used by
	// PreloadStored.
	Stored ResourceLister
}

// ResourceLister lists the ids of stored resources of one kind.
type ResourceLister interface {
	List(ctx context.Context) ([]string, error)
}

// ChecklistService edits the checklists of tasks. Each task has its own
// controller, opened on first use and kept for the life of the service.
type ChecklistService struct {
	store versioned.Store[[]checklist.Entry]
	tasks task.Store
	opts  ChecklistOptions
	ctrl  ControllerOptions
	cache *kv.Cache[ChecklistView]
	log   zerolog.Logger

	controllers *registry.Store[string, *Controller[checklist.Item]]
	opening     singleflight.Group
}

// NewChecklistService creates the service. cache may be nil.
func NewChecklistService(store versioned.Store[[]checklist.Entry], tasks task.Store, cache kv.KV, opts ChecklistOptions, ctrl ControllerOptions) *ChecklistService {
	if opts.MaxItems <= 0 {
		opts.MaxItems = checklist.DefaultMaxItems
	}
	if opts.PreloadWorkers <= 0 {
		opts.PreloadWorkers = 4
	}
	ctrl.Capacity = opts.MaxItems

	s := &ChecklistService{
		store:       store,
		tasks:       tasks,
		opts:        opts,
		ctrl:        ctrl,
		log:         ctrl.Logger.With().Str("component", "checklist-service").Logger(),
		controllers: registry.New[string, *Controller[checklist.Item]](),
	}
	if cache != nil && opts.CacheTTL > 0 {
		s.cache = kv.NewCache[ChecklistView](cache, "checklist-view", opts.CacheTTL)
	}
	return s
}

// Add creates an item with the given title at position. A negative position
// appends.
func (s *ChecklistService) Add(ctx context.Context, taskID, title string, position int) (ChecklistItem, error) {
	title, err := checklist.ValidateTitle(title)
	if err != nil {
		return ChecklistItem{}, err
	}

	c, err := s.controller(ctx, taskID)
	if err != nil {
		return ChecklistItem{}, err
	}

	id := uuid.NewString()
	item := checklist.Item{Title: title}
	if position < 0 {
		_, err = c.Append(ctx, id, item)
	} else {
		_, err = c.Insert(ctx, id, item, position)
	}
	if err != nil {
		return ChecklistItem{}, err
	}

	e, _ := c.Get(id)
	return toChecklistItem(e), nil
}

// Toggle flips the checked flag of an item.
func (s *ChecklistService) Toggle(ctx context.Context, taskID, itemID string) (ChecklistItem, error) {
	c, err := s.controller(ctx, taskID)
	if err != nil {
		return ChecklistItem{}, err
	}
	e, ok := c.Get(itemID)
	if !ok {
		return ChecklistItem{}, notFound(itemID)
	}
	return s.SetChecked(ctx, taskID, itemID, !e.Value.Checked)
}

// SetChecked sets the checked flag of an item.
func (s *ChecklistService) SetChecked(ctx context.Context, taskID, itemID string, checked bool) (ChecklistItem, error) {
	return s.edit(ctx, taskID, itemID, func(it *checklist.Item) { it.Checked = checked })
}

// Rename changes the title of an item.
func (s *ChecklistService) Rename(ctx context.Context, taskID, itemID, title string) (ChecklistItem, error) {
	title, err := checklist.ValidateTitle(title)
	if err != nil {
		return ChecklistItem{}, err
	}
	return s.edit(ctx, taskID, itemID, func(it *checklist.Item) { it.Title = title })
}

// Move reorders an item to position.
func (s *ChecklistService) Move(ctx context.Context, taskID, itemID string, position int) (ChecklistItem, error) {
	c, err := s.controller(ctx, taskID)
	if err != nil {
		return ChecklistItem{}, err
	}
	e, err := c.Move(ctx, itemID, position)
	if err != nil {
		return ChecklistItem{}, err
	}
	return toChecklistItem(e), nil
}

// Remove deletes an item.
func (s *ChecklistService) Remove(ctx context.Context, taskID, itemID string) error {
	c, err := s.controller(ctx, taskID)
	if err != nil {
		return err
	}
	return c.Remove(ctx, itemID)
}

// View returns the checklist of a task, loading it on first use.
func (s *ChecklistService) View(ctx context.Context, taskID string) (ChecklistView, error) {
	c, err := s.controller(ctx, taskID)
	if err != nil {
		return ChecklistView{}, err
	}
	return viewOf(taskID, c), nil
}

// Reload discards the local checklist and reads the stored one.
func (s *ChecklistService) Reload(ctx context.Context, taskID string) (ChecklistView, error) {
	c, err := s.controller(ctx, taskID)
	if err != nil {
		return ChecklistView{}, err
	}
	if err := c.Load(ctx); err != nil {
		return ChecklistView{}, err
	}
	return viewOf(taskID, c), nil
}

// Cached returns the last committed view from the view cache without
// touching the store.
func (s *ChecklistService) Cached(ctx context.Context, taskID string) (ChecklistView, bool) {
	if s.cache == nil {
		return ChecklistView{}, false
	}
	v, ok, err := s.cache.Lookup(ctx, taskID)
	if err != nil {
		s.log.Warn().Err(err).Str("task", taskID).Msg("checklist cache unavailable")
		return ChecklistView{}, false
	}
	return v, ok
}

// Preload loads the checklists of taskIDs with bounded concurrency. Missing
// tasks are skipped.
func (s *ChecklistService) Preload(ctx context.Context, taskIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.PreloadWorkers)

	for _, id := range taskIDs {
		g.Go(func() error {
			_, err := s.controller(ctx, id)
			if errors.Is(err, task.ErrNotFound) {
				s.log.Debug().Str("task", id).Msg("skipping preload of missing task")
				return nil
			}
			if err != nil {
				return fmt.Errorf("preload checklist %s: %w", id, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// PreloadStored loads every checklist that has been written at least once
// and returns how many were opened. Checklists of deleted tasks are skipped.
func (s *ChecklistService) PreloadStored(ctx context.Context) (int, error) {
	if s.opts.Stored == nil {
		return 0, nil
	}
	ids, err := s.opts.Stored.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list checklists: %w", err)
	}

	taskIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if taskID, ok := strings.CutPrefix(id, ChecklistResourceID("")); ok {
			taskIDs = append(taskIDs, taskID)
		}
	}
	if err := s.Preload(ctx, taskIDs); err != nil {
		return 0, err
	}

	n := 0
	for _, id := range taskIDs {
		if _, ok := s.controllers.Get(id); ok {
			n++
		}
	}
	return n, nil
}

// Forget drops the local state of a task's checklist.
func (s *ChecklistService) Forget(ctx context.Context, taskID string) {
	if _, ok := s.controllers.Remove(taskID); ok {
		s.log.Debug().Str("task", taskID).Msg("checklist closed")
	}
	if s.cache != nil {
		if err := s.cache.Evict(ctx, taskID); err != nil {
			s.log.Warn().Err(err).Str("task", taskID).Msg("failed to drop cached checklist")
		}
	}
}

// Loaded returns the ids of tasks whose checklist is open, sorted.
func (s *ChecklistService) Loaded() []string {
	return s.controllers.Keys()
}

func (s *ChecklistService) edit(ctx context.Context, taskID, itemID string, fn func(*checklist.Item)) (ChecklistItem, error) {
	c, err := s.controller(ctx, taskID)
	if err != nil {
		return ChecklistItem{}, err
	}
	e, err := c.Edit(ctx, itemID, fn)
	if err != nil {
		return ChecklistItem{}, err
	}
	return toChecklistItem(e), nil
}

// controller returns the loaded controller of taskID, opening it if needed.
// Concurrent opens of the same task share one load.
func (s *ChecklistService) controller(ctx context.Context, taskID string) (*Controller[checklist.Item], error) {
	if c, ok := s.controllers.Get(taskID); ok {
		return c, nil
	}

	v, err, _ := s.opening.Do(taskID, func() (any, error) {
		if c, ok := s.controllers.Get(taskID); ok {
			return c, nil
		}

		if _, err := s.tasks.Get(ctx, taskID); err != nil {
			return nil, fmt.Errorf("open checklist %s: %w", taskID, err)
		}

		c := NewController[checklist.Item](ChecklistResourceID(taskID), s.store, s.ctrl)
		if err := c.Load(ctx); err != nil {
			return nil, fmt.Errorf("open checklist %s: %w", taskID, err)
		}
		if s.cache != nil {
			c.Watch(func(ch Change[checklist.Item]) { s.cacheChange(taskID, ch) })
			s.cacheChange(taskID, Change[checklist.Item]{
				ResourceID: c.ID(),
				Entries:    c.View(),
				Token:      c.Token(),
				State:      c.State(),
			})
		}

		s.controllers.Set(taskID, c)
		s.log.Debug().Str("task", taskID).Int("items", len(c.View())).Msg("checklist opened")
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Controller[checklist.Item]), nil
}

// cacheChange stores committed views. Optimistic and failed states are not
// cached.
func (s *ChecklistService) cacheChange(taskID string, ch Change[checklist.Item]) {
	if ch.State != versioned.StateClean {
		return
	}
	view := buildView(taskID, ch.Entries, ch.Token, ch.State)
	if err := s.cache.Put(context.Background(), taskID, view); err != nil {
		s.log.Warn().Err(err).Str("task", taskID).Msg("failed to cache checklist view")
	}
}

func viewOf(taskID string, c *Controller[checklist.Item]) ChecklistView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return buildView(taskID, c.list.Entries(), c.token, c.state)
}

func buildView(taskID string, entries []checklist.Entry, token string, state versioned.State) ChecklistView {
	items := make([]ChecklistItem, len(entries))
	for i, e := range entries {
		items[i] = toChecklistItem(e)
	}
	done, total := checklist.Progress(entries)
	return ChecklistView{
		TaskID: taskID,
		Items:  items,
		Done:   done,
		Total:  total,
		Token:  token,
		State:  state.String(),
	}
}

func toChecklistItem(e checklist.Entry) ChecklistItem {
	return ChecklistItem{ID: e.ID, Key: e.Key, Title: e.Value.Title, Checked: e.Value.Checked}
}
