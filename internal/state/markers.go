// Package state persists per-category reset markers in a small YAML file.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of the state file.
type document struct {
	LastReset map[string]time.Time `yaml:"last_reset"`
}

// Markers reads and writes reset markers stored at a single path.
type Markers struct {
	mu   sync.Mutex
	path string
}

// NewMarkers returns a marker store backed by the file at path.
// The file is created on first write.
func NewMarkers(path string) *Markers {
	return &Markers{path: path}
}

// LastReset returns the last successful reset time of a category.
// ok is false when the category has never been reset.
func (m *Markers) LastReset(category string) (t time.Time, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.read()
	if err != nil {
		return time.Time{}, false, err
	}
	t, ok = doc.LastReset[category]
	return t, ok, nil
}

// SetLastReset records t as the last successful reset of a category.
func (m *Markers) SetLastReset(category string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.read()
	if err != nil {
		return err
	}
	doc.LastReset[category] = t
	return m.write(doc)
}

func (m *Markers) read() (*document, error) {
	doc := &document{LastReset: make(map[string]time.Time)}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if doc.LastReset == nil {
		doc.LastReset = make(map[string]time.Time)
	}
	return doc, nil
}

// write replaces the state file atomically via a temp file.
func (m *Markers) write(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state: %w", err)
	}
	return nil
}
