package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"heartwork/internal/service"
)

var (
	// ErrDefaultTask is returned when deleting one of the daily default tasks.
	ErrDefaultTask = errors.New("daily tasks cannot be deleted")

	// ErrResetFailed is returned by a forced Sync whose reset did not go
	// through. The reset marker is left where it was.
	ErrResetFailed = errors.New("daily reset failed")
)

// Coordinator fetches, resets and mutates to-do lists, reconciling every
// response into a Store.
type Coordinator struct {
	svc    service.TaskService
	store  *Store
	gate   *Gate
	log    zerolog.Logger
	window Window
	now    func() time.Time

	// syncMu serializes Sync so overlapping triggers cannot reset twice.
	syncMu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithClock sets the clock used for reset decisions and markers.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithWindow sets the morning reset window.
func WithWindow(w Window) Option {
	return func(c *Coordinator) { c.window = w }
}

// NewCoordinator creates a coordinator writing into store and keeping reset
// markers in markers.
func NewCoordinator(svc service.TaskService, store *Store, markers MarkerStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		svc:    svc,
		store:  store,
		log:    zerolog.Nop(),
		window: MorningWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.gate = NewGate(markers, c.window, c.now)
	return c
}

// Store returns the store the coordinator writes into.
func (c *Coordinator) Store() *Store {
	return c.store
}

// Sync brings a category up to date: it resets the default tasks when forced
// or due, fetches the list, and recreates the defaults if the list came back
// empty. On a fetch failure the current list is kept, the error is recorded
// in the store and returned alongside it. A forced reset that fails is
// reported as ErrResetFailed next to the fetched list; a scheduled one is
// only logged and retried by the next sync.
func (c *Coordinator) Sync(ctx context.Context, category string, force bool) ([]service.Task, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	reset := force
	if !reset {
		due, err := c.gate.ShouldReset(category)
		if err != nil {
			// An unreadable marker is treated like a missing one
			c.log.Warn().Err(err).Str("category", category).Msg("reading reset marker")
			due = true
		}
		reset = due
	}
	var resetErr error
	if reset {
		resetErr = c.resetDefaults(ctx, category)
	}

	tasks, err := c.svc.ListTasks(ctx, category)
	if err != nil {
		return c.fail(category, "failed to load tasks", err)
	}

	if len(tasks) == 0 {
		c.log.Debug().Str("category", category).Msg("no tasks, creating defaults")
		if err := c.createMissingDefaults(ctx, category, nil); err != nil {
			c.log.Warn().Err(err).Str("category", category).Msg("creating defaults")
		}
		tasks, err = c.svc.ListTasks(ctx, category)
		if err != nil {
			return c.fail(category, "failed to load tasks", err)
		}
	}

	c.store.Replace(category, tasks)
	if force && resetErr != nil {
		err := fmt.Errorf("could not reset %s, will retry on next sync: %w", category, resetErr)
		c.store.SetErr(category, err)
		return c.store.Tasks(category), err
	}
	c.store.SetErr(category, nil)
	return c.store.Tasks(category), nil
}

// Refresh refetches a category without any reset logic.
func (c *Coordinator) Refresh(ctx context.Context, category string) ([]service.Task, error) {
	tasks, err := c.svc.ListTasks(ctx, category)
	if err != nil {
		return c.fail(category, "failed to load tasks", err)
	}
	c.store.Replace(category, tasks)
	c.store.SetErr(category, nil)
	return c.store.Tasks(category), nil
}

// resetDefaults asks the backend to recreate the defaults, falling back to
// creating the ones that are missing. The marker only advances when either
// path succeeded, so a failed reset is retried by the next sync. The returned
// error wraps ErrResetFailed.
func (c *Coordinator) resetDefaults(ctx context.Context, category string) error {
	log := c.log.With().Str("category", category).Logger()
	log.Info().Msg("resetting daily tasks")

	err := c.svc.ResetDefaults(ctx, category)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			log.Warn().Err(err).Msg("reset rejected")
			return fmt.Errorf("%w: %w", ErrResetFailed, err)
		}
		log.Warn().Err(err).Msg("reset failed, creating defaults directly")

		existing, lerr := c.svc.ListTasks(ctx, category)
		if lerr != nil {
			log.Warn().Err(lerr).Msg("listing tasks before fallback, marker not advanced")
			return fmt.Errorf("%w: %w", ErrResetFailed, lerr)
		}
		if err := c.createMissingDefaults(ctx, category, existing); err != nil {
			log.Warn().Err(err).Msg("fallback creation failed, marker not advanced")
			return fmt.Errorf("%w: %w", ErrResetFailed, err)
		}
	}

	if err := c.gate.MarkReset(category); err != nil {
		log.Warn().Err(err).Msg("saving reset marker")
	}
	return nil
}

// createMissingDefaults creates every default task that has no open copy in
// existing, continuing past failures. Completed copies from an earlier day
// do not count, so a retried fallback never adds a second open set.
func (c *Coordinator) createMissingDefaults(ctx context.Context, category string, existing []service.Task) error {
	open := make(map[string]bool, len(existing))
	for _, t := range existing {
		if t.IsDefault && !t.Completed {
			open[t.Text] = true
		}
	}

	var errs []error
	for _, text := range DefaultTasks {
		if open[text] {
			continue
		}
		_, err := c.svc.CreateTask(ctx, service.NewTask{Text: text, Category: category, IsDefault: true})
		if err != nil {
			errs = append(errs, fmt.Errorf("create %q: %w", text, err))
		}
	}
	return errors.Join(errs...)
}

// AddTask creates a task and prepends it to the category right away, without
// waiting for the push channel. Blank text is rejected before any request.
func (c *Coordinator) AddTask(ctx context.Context, text, category string) (service.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return service.Task{}, fmt.Errorf("%w: task text is empty", service.ErrValidation)
	}

	created, err := c.svc.CreateTask(ctx, service.NewTask{Text: text, Category: category})
	if err != nil {
		_, err = c.fail(category, "failed to add task", err)
		return service.Task{}, err
	}
	if created.Category == "" {
		created.Category = category
	}
	c.store.Prepend(category, created)
	return created, nil
}

// ToggleComplete flips a task's completion optimistically, then settles the
// change with the server's answer. Any failure rolls the change back; all but
// auth failures also refetch the list.
func (c *Coordinator) ToggleComplete(ctx context.Context, id string) (service.Task, error) {
	m, err := c.store.Begin(KindToggle, id)
	if err != nil {
		return service.Task{}, err
	}

	updated, err := c.svc.UpdateTask(ctx, id, m.Completed)
	if err != nil {
		c.rollback(m)
		return service.Task{}, c.recover(ctx, m.Category, "failed to update task", err)
	}

	if updated.Completed != m.Completed {
		c.log.Debug().Str("task", id).Bool("server", updated.Completed).Msg("server disagrees with optimistic toggle")
	}
	if updated.ID == "" {
		updated.ID = id
	}
	c.confirm(m, &updated)
	if t, ok := c.store.Task(id); ok {
		return t, nil
	}
	return updated, nil
}

// DeleteTask hides a task optimistically and deletes it on the backend.
// A task that is already gone counts as deleted.
func (c *Coordinator) DeleteTask(ctx context.Context, id string) error {
	t, ok := c.store.Task(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	if t.IsDefault {
		return ErrDefaultTask
	}

	m, err := c.store.Begin(KindDelete, id)
	if err != nil {
		return err
	}

	err = c.svc.DeleteTask(ctx, id)
	if err == nil || errors.Is(err, service.ErrNotFound) {
		if err != nil {
			c.log.Debug().Str("task", id).Msg("task already deleted")
		}
		c.confirm(m, nil)
		return nil
	}

	c.rollback(m)
	return c.recover(ctx, m.Category, "failed to delete task", err)
}

// confirm and rollback settle a mutation. They only fail when the store was
// closed meanwhile or the mutation was already settled.
func (c *Coordinator) confirm(m Mutation, result *service.Task) {
	if _, err := c.store.Confirm(m.ID, result); err != nil {
		c.log.Debug().Err(err).Str("task", m.TaskID).Stringer("kind", m.Kind).Msg("confirming mutation")
	}
}

func (c *Coordinator) rollback(m Mutation) {
	if _, err := c.store.Rollback(m.ID); err != nil {
		c.log.Debug().Err(err).Str("task", m.TaskID).Stringer("kind", m.Kind).Msg("rolling back mutation")
	}
}

// recover records a mutation failure and refetches the list unless the
// failure was an auth error, which is never retried automatically.
func (c *Coordinator) recover(ctx context.Context, category, msg string, err error) error {
	if errors.Is(err, service.ErrUnauthorized) {
		_, err = c.fail(category, msg, err)
		return err
	}
	if errors.Is(err, service.ErrNotFound) {
		err = fmt.Errorf("task not found, list refreshed: %w", err)
	} else {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	if _, ferr := c.Refresh(ctx, category); ferr != nil {
		c.log.Warn().Err(ferr).Str("category", category).Msg("refetch after failed mutation")
	}
	c.store.SetErr(category, err)
	return err
}

// fail records err against the category and returns the unchanged list.
func (c *Coordinator) fail(category, msg string, err error) ([]service.Task, error) {
	if errors.Is(err, service.ErrUnauthorized) {
		err = fmt.Errorf("authentication error, please log in again: %w", err)
	} else {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	c.log.Warn().Err(err).Str("category", category).Msg("sync error")
	c.store.SetErr(category, err)
	return c.store.Tasks(category), err
}
