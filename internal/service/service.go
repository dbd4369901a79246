package service

import (
	"context"
	"io"
)

// Service defines the interface for backend operations.
// All REST calls go through this interface; commands never build requests directly.
type Service interface {
	TaskService

	// Verify checks the stored token and returns its user.
	Verify(ctx context.Context) (User, error)

	// ListNotes returns all sticky notes.
	ListNotes(ctx context.Context) ([]Note, error)

	// CreateNote adds a sticky note.
	CreateNote(ctx context.Context, text string) (Note, error)

	// UpdateNote replaces the text of a note.
	UpdateNote(ctx context.Context, id, text string) (Note, error)

	// DeleteNote removes a note.
	DeleteNote(ctx context.Context, id string) error

	// ListImages returns the gallery, newest first as the backend orders it.
	ListImages(ctx context.Context) ([]Image, error)

	// UploadImage uploads a photo read from r under the given file name.
	UploadImage(ctx context.Context, name string, r io.Reader) (Image, error)

	// DeleteImage removes a photo.
	DeleteImage(ctx context.Context, id string) error
}

// TaskService is the subset of Service the to-do sync logic depends on.
type TaskService interface {
	// ListTasks returns every task of a category in backend order.
	ListTasks(ctx context.Context, category string) ([]Task, error)

	// CreateTask creates a task and returns it with its backend-assigned ID.
	CreateTask(ctx context.Context, t NewTask) (Task, error)

	// UpdateTask sets the completion flag and returns the backend's view of the task.
	UpdateTask(ctx context.Context, id string, completed bool) (Task, error)

	// DeleteTask deletes a task. Returns ErrNotFound if it no longer exists.
	DeleteTask(ctx context.Context, id string) error

	// ResetDefaults deletes and recreates the default tasks of a category.
	ResetDefaults(ctx context.Context, category string) error
}
