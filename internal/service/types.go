// Package service defines the backend-agnostic interface for dashboard operations.
package service

import "time"

// Task represents a single to-do item.
type Task struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	Category  string    `json:"animal"`
	Completed bool      `json:"completed"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTask is the payload for creating a task.
type NewTask struct {
	Text      string `json:"text"`
	Category  string `json:"animal"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// Note represents a shared sticky note.
type Note struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Image represents a gallery photo.
type Image struct {
	ID        string    `json:"_id"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is the account a token belongs to.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
