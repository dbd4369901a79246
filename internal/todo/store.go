package todo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"heartwork/internal/service"
)

var (
	// ErrClosed is returned by writes after the store has been closed.
	ErrClosed = errors.New("store closed")

	// ErrUnknownTask is returned when a task ID is not in any list.
	ErrUnknownTask = errors.New("task not in list")
)

// Store holds the to-do lists of every category.
//
// Each category has a base list, written only by network responses and push
// snapshots, and the view readers get is the base with every pending
// mutation applied in the order it began. A snapshot therefore replaces the
// base without reverting edits that are still in flight.
type Store struct {
	mu        sync.Mutex
	base      map[string][]service.Task
	mutations map[string]*Mutation
	order     []string // pending mutation IDs, oldest first
	errs      map[string]error
	watchers  map[int]chan string
	nextWatch int
	closed    bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		base:      make(map[string][]service.Task),
		mutations: make(map[string]*Mutation),
		errs:      make(map[string]error),
		watchers:  make(map[int]chan string),
	}
}

// Tasks returns a copy of the current view of a category.
func (s *Store) Tasks(category string) []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(category)
}

// Task finds a task by ID in the current view of any category.
func (s *Store) Task(id string) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

// Replace swaps the base list of a category wholesale.
func (s *Store) Replace(category string, tasks []service.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.base[category] = append([]service.Task(nil), tasks...)
	s.notifyLocked(category)
}

// Prepend adds a task to the front of a category unless it is already there.
func (s *Store) Prepend(category string, t service.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, existing := range s.base[category] {
		if existing.ID == t.ID {
			return
		}
	}
	s.base[category] = append([]service.Task{t}, s.base[category]...)
	s.notifyLocked(category)
}

// Patch replaces the stored copy of a task with the same ID.
// Tasks not in the base are ignored.
func (s *Store) Patch(t service.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.patchLocked(t)
}

// Remove drops a task from the base.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.removeLocked(id)
}

// SetErr records the user-visible error of a category; nil clears it.
func (s *Store) SetErr(category string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err == nil {
		delete(s.errs, category)
	} else {
		s.errs[category] = err
	}
	s.notifyLocked(category)
}

// Err returns the recorded error of a category.
func (s *Store) Err(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[category]
}

// Begin layers a pending mutation over the task with the given ID.
// Toggles target the opposite of the task's currently visible state.
func (s *Store) Begin(kind MutationKind, taskID string) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Mutation{}, ErrClosed
	}

	t, ok := s.findLocked(taskID)
	if !ok {
		return Mutation{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	m := &Mutation{
		ID:       uuid.NewString(),
		Kind:     kind,
		Category: t.Category,
		TaskID:   taskID,
		State:    Pending,
	}
	if kind == KindToggle {
		m.Completed = !t.Completed
	}
	s.mutations[m.ID] = m
	s.order = append(s.order, m.ID)
	s.notifyLocked(m.Category)
	return *m, nil
}

// Confirm settles a pending mutation with the server's outcome. For toggles,
// result (when non-nil) replaces the stored task so the server's value wins;
// for deletes the task leaves the base.
func (s *Store) Confirm(id string, result *service.Task) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.settleLocked(id, Confirmed)
	if err != nil {
		return Mutation{}, err
	}
	switch m.Kind {
	case KindToggle:
		if result != nil {
			s.patchLocked(*result)
		} else {
			// No body: the optimistic value was accepted as sent
			if t, ok := s.baseTaskLocked(m.TaskID); ok {
				t.Completed = m.Completed
				s.patchLocked(t)
			}
		}
	case KindDelete:
		s.removeLocked(m.TaskID)
	}
	s.notifyLocked(m.Category)
	return *m, nil
}

// Rollback discards a pending mutation; the view reverts to the base.
func (s *Store) Rollback(id string) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.settleLocked(id, RolledBack)
	if err != nil {
		return Mutation{}, err
	}
	s.notifyLocked(m.Category)
	return *m, nil
}

// Pending returns the number of unsettled mutations.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Watch returns a channel that receives the category name after every change,
// and a function that stops the subscription. Notifications are dropped when
// the channel is full. The channel is closed by the stop function or Close.
func (s *Store) Watch() (<-chan string, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan string, 16)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}
}

// Close discards every later write and ends all watches.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
}

func (s *Store) viewLocked(category string) []service.Task {
	base := s.base[category]
	out := make([]service.Task, 0, len(base))
	for _, t := range base {
		hidden := false
		for _, id := range s.order {
			var h bool
			t, h = s.mutations[id].applyTo(t)
			hidden = hidden || h
		}
		if !hidden {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) findLocked(id string) (service.Task, bool) {
	for category := range s.base {
		for _, t := range s.viewLocked(category) {
			if t.ID == id {
				if t.Category == "" {
					t.Category = category
				}
				return t, true
			}
		}
	}
	return service.Task{}, false
}

func (s *Store) baseTaskLocked(id string) (service.Task, bool) {
	for _, tasks := range s.base {
		for _, t := range tasks {
			if t.ID == id {
				return t, true
			}
		}
	}
	return service.Task{}, false
}

func (s *Store) patchLocked(t service.Task) {
	for category, tasks := range s.base {
		for i := range tasks {
			if tasks[i].ID == t.ID {
				if t.Category == "" {
					t.Category = category
				}
				tasks[i] = t
				s.notifyLocked(category)
				return
			}
		}
	}
}

func (s *Store) removeLocked(id string) {
	for category, tasks := range s.base {
		for i := range tasks {
			if tasks[i].ID == id {
				s.base[category] = append(tasks[:i:i], tasks[i+1:]...)
				s.notifyLocked(category)
				return
			}
		}
	}
}

func (s *Store) settleLocked(id string, to MutationState) (*Mutation, error) {
	if s.closed {
		return nil, ErrClosed
	}
	m, ok := s.mutations[id]
	if !ok {
		return nil, fmt.Errorf("%w: mutation %s is not pending", ErrInvalidTransition, id)
	}
	if err := m.settle(to); err != nil {
		return nil, err
	}
	delete(s.mutations, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return m, nil
}

func (s *Store) notifyLocked(category string) {
	for _, ch := range s.watchers {
		select {
		case ch <- category:
		default:
		}
	}
}
