// Package cache keeps the last successfully synced task list per category
// in a local sqlite database, so a failed fetch can still show stale data.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"heartwork/internal/service"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_snapshots (
	category TEXT PRIMARY KEY,
	payload  TEXT NOT NULL,
	saved_at TIMESTAMP NOT NULL
);`

// Cache is a sqlite-backed snapshot store.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// SaveTasks replaces the snapshot of a category.
func (c *Cache) SaveTasks(category string, tasks []service.Task) error {
	if tasks == nil {
		tasks = []service.Task{}
	}
	payload, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO task_snapshots (category, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		category, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadTasks returns the snapshot of a category and when it was saved.
// A category with no snapshot yields nil tasks and a zero time.
func (c *Cache) LoadTasks(category string) ([]service.Task, time.Time, error) {
	var payload string
	var savedAt time.Time
	err := c.db.QueryRow(`SELECT payload, saved_at FROM task_snapshots WHERE category = ?`, category).
		Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var tasks []service.Task
	if err := json.Unmarshal([]byte(payload), &tasks); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return tasks, savedAt, nil
}
