// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"heartwork/internal/service"
)

// BaseTime is the creation time of the first task the fake creates; each
// later creation is one minute newer.
var BaseTime = time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	tasks  []service.Task
	notes  []service.Note
	images []service.Image
	user   service.User
	clock  time.Time
	calls  map[string]int

	// Error injection for testing
	VerifyErr        error
	ListTasksErr     error
	CreateTaskErr    error
	UpdateTaskErr    error
	DeleteTaskErr    error
	ResetDefaultsErr error
	ListNotesErr     error
	CreateNoteErr    error
	UpdateNoteErr    error
	DeleteNoteErr    error
	ListImagesErr    error
	UploadImageErr   error
	DeleteImageErr   error

	// UpdateTaskFunc, when set, replaces the UpdateTask behaviour.
	UpdateTaskFunc func(id string, completed bool) (service.Task, error)

	// CreateTaskCheck, when set, fails any create it returns an error for.
	CreateTaskCheck func(nt service.NewTask) error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		user:  service.User{ID: "u1", Username: "panda"},
		clock: BaseTime,
		calls: make(map[string]int),
	}
}

// Calls returns how many times a method was invoked.
func (f *FakeService) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// AddTask seeds a task with a fixed ID.
func (f *FakeService) AddTask(id, category, text string, isDefault, completed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, service.Task{
		ID:        id,
		Text:      text,
		Category:  category,
		IsDefault: isDefault,
		Completed: completed,
		CreatedAt: f.tickLocked(),
	})
}

// AddNote seeds a note with a fixed ID.
func (f *FakeService) AddNote(id, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, service.Note{ID: id, Text: text, CreatedAt: f.tickLocked()})
}

// AddImage seeds a gallery image with a fixed ID.
func (f *FakeService) AddImage(id, filename string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, service.Image{ID: id, Filename: filename, URL: "/uploads/" + filename, CreatedAt: f.tickLocked()})
}

// AllTasks returns every stored task across categories.
func (f *FakeService) AllTasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Task(nil), f.tasks...)
}

func (f *FakeService) tickLocked() time.Time {
	t := f.clock
	f.clock = f.clock.Add(time.Minute)
	return t
}

func (f *FakeService) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

// Verify implements service.Service.
func (f *FakeService) Verify(ctx context.Context) (service.User, error) {
	f.record("Verify")
	if f.VerifyErr != nil {
		return service.User{}, f.VerifyErr
	}
	return f.user, nil
}

// ListTasks implements service.TaskService.
func (f *FakeService) ListTasks(ctx context.Context, category string) ([]service.Task, error) {
	f.record("ListTasks")
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []service.Task
	for _, t := range f.tasks {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

// CreateTask implements service.TaskService.
func (f *FakeService) CreateTask(ctx context.Context, nt service.NewTask) (service.Task, error) {
	f.record("CreateTask")
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	if f.CreateTaskCheck != nil {
		if err := f.CreateTaskCheck(nt); err != nil {
			return service.Task{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t := service.Task{
		ID:        uuid.NewString(),
		Text:      nt.Text,
		Category:  nt.Category,
		IsDefault: nt.IsDefault,
		CreatedAt: f.tickLocked(),
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

// UpdateTask implements service.TaskService.
func (f *FakeService) UpdateTask(ctx context.Context, id string, completed bool) (service.Task, error) {
	f.record("UpdateTask")
	if f.UpdateTaskFunc != nil {
		return f.UpdateTaskFunc(id, completed)
	}
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Completed = completed
			return f.tasks[i], nil
		}
	}
	return service.Task{}, fmt.Errorf("task %s: %w", id, service.ErrNotFound)
}

// DeleteTask implements service.TaskService.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.record("DeleteTask")
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %s: %w", id, service.ErrNotFound)
}

// ResetDefaults implements service.TaskService.
// Existing default tasks of the category are replaced by fresh ones.
func (f *FakeService) ResetDefaults(ctx context.Context, category string) error {
	f.record("ResetDefaults")
	if f.ResetDefaultsErr != nil {
		return f.ResetDefaultsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.tasks[:0]
	for _, t := range f.tasks {
		if !(t.IsDefault && t.Category == category) {
			kept = append(kept, t)
		}
	}
	f.tasks = kept
	for _, text := range []string{"Breakfast", "Lunch", "Dinner", "Daily Walk"} {
		f.tasks = append(f.tasks, service.Task{
			ID:        uuid.NewString(),
			Text:      text,
			Category:  category,
			IsDefault: true,
			CreatedAt: f.tickLocked(),
		})
	}
	return nil
}

// ListNotes implements service.Service.
func (f *FakeService) ListNotes(ctx context.Context) ([]service.Note, error) {
	f.record("ListNotes")
	if f.ListNotesErr != nil {
		return nil, f.ListNotesErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Note(nil), f.notes...), nil
}

// CreateNote implements service.Service.
func (f *FakeService) CreateNote(ctx context.Context, text string) (service.Note, error) {
	f.record("CreateNote")
	if f.CreateNoteErr != nil {
		return service.Note{}, f.CreateNoteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := service.Note{ID: uuid.NewString(), Text: text, CreatedAt: f.tickLocked()}
	f.notes = append(f.notes, n)
	return n, nil
}

// UpdateNote implements service.Service.
func (f *FakeService) UpdateNote(ctx context.Context, id, text string) (service.Note, error) {
	f.record("UpdateNote")
	if f.UpdateNoteErr != nil {
		return service.Note{}, f.UpdateNoteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notes {
		if f.notes[i].ID == id {
			f.notes[i].Text = text
			return f.notes[i], nil
		}
	}
	return service.Note{}, fmt.Errorf("note %s: %w", id, service.ErrNotFound)
}

// DeleteNote implements service.Service.
func (f *FakeService) DeleteNote(ctx context.Context, id string) error {
	f.record("DeleteNote")
	if f.DeleteNoteErr != nil {
		return f.DeleteNoteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notes {
		if n.ID == id {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("note %s: %w", id, service.ErrNotFound)
}

// ListImages implements service.Service.
func (f *FakeService) ListImages(ctx context.Context) ([]service.Image, error) {
	f.record("ListImages")
	if f.ListImagesErr != nil {
		return nil, f.ListImagesErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Image(nil), f.images...), nil
}

// UploadImage implements service.Service.
func (f *FakeService) UploadImage(ctx context.Context, name string, r io.Reader) (service.Image, error) {
	f.record("UploadImage")
	if f.UploadImageErr != nil {
		return service.Image{}, f.UploadImageErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return service.Image{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	img := service.Image{ID: uuid.NewString(), Filename: name, URL: "/uploads/" + name, CreatedAt: f.tickLocked()}
	f.images = append([]service.Image{img}, f.images...)
	return img, nil
}

// DeleteImage implements service.Service.
func (f *FakeService) DeleteImage(ctx context.Context, id string) error {
	f.record("DeleteImage")
	if f.DeleteImageErr != nil {
		return f.DeleteImageErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, img := range f.images {
		if img.ID == id {
			f.images = append(f.images[:i], f.images[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("image %s: %w", id, service.ErrNotFound)
}

// MemoryMarkers is an in-memory reset marker store.
type MemoryMarkers struct {
	mu      sync.Mutex
	markers map[string]time.Time
	Writes  int

	// SetErr, when set, is returned by SetLastReset.
	SetErr error
}

// NewMemoryMarkers creates an empty marker store.
func NewMemoryMarkers() *MemoryMarkers {
	return &MemoryMarkers{markers: make(map[string]time.Time)}
}

// LastReset implements todo.MarkerStore.
func (m *MemoryMarkers) LastReset(category string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.markers[category]
	return t, ok, nil
}

// SetLastReset implements todo.MarkerStore.
func (m *MemoryMarkers) SetLastReset(category string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.markers[category] = t
	m.Writes++
	return nil
}
