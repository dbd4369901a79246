package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"heartwork/internal/cache"
	"heartwork/internal/config"
	"heartwork/internal/output"
	"heartwork/internal/service"
	"heartwork/internal/state"
	"heartwork/internal/todo"
)

// workspace wires a coordinator to the reset markers and snapshot cache in
// the config directory.
type workspace struct {
	cfg   *config.Config
	coord *todo.Coordinator
	cache *cache.Cache
}

func openWorkspace(cfg *config.Config, svc service.TaskService) *workspace {
	store := todo.NewStore()
	markers := state.NewMarkers(cfg.StatePath())
	coord := todo.NewCoordinator(svc, store, markers,
		todo.WithLogger(cfg.Log),
		todo.WithWindow(todo.Window{Start: cfg.MorningStart, End: cfg.MorningEnd}),
	)

	ws := &workspace{cfg: cfg, coord: coord}
	c, err := cache.Open(cfg.CachePath())
	if err != nil {
		cfg.Log.Warn().Err(err).Msg("snapshot cache unavailable")
	} else {
		ws.cache = c
	}
	return ws
}

func (w *workspace) store() *todo.Store {
	return w.coord.Store()
}

// seed loads the cached snapshot of a category into the store.
func (w *workspace) seed(category string) {
	if w.cache == nil {
		return
	}
	tasks, savedAt, err := w.cache.LoadTasks(category)
	if err != nil {
		w.cfg.Log.Warn().Err(err).Str("category", category).Msg("reading snapshot cache")
		return
	}
	if tasks != nil {
		w.cfg.Log.Debug().Str("category", category).Time("saved_at", savedAt).Msg("seeded from cache")
		w.store().Replace(category, tasks)
	}
}

// save writes the store's view of a category to the cache.
func (w *workspace) save(category string) {
	if w.cache == nil {
		return
	}
	if err := w.cache.SaveTasks(category, w.store().Tasks(category)); err != nil {
		w.cfg.Log.Warn().Err(err).Str("category", category).Msg("writing snapshot cache")
	}
}

// sync seeds the category from the cache, syncs it and caches the result.
// On failure the returned list is the cached one.
func (w *workspace) sync(ctx context.Context, category string, force bool) ([]service.Task, error) {
	w.seed(category)
	tasks, err := w.coord.Sync(ctx, category, force)
	if err == nil {
		w.save(category)
	}
	return tasks, err
}

// lookup syncs a category and returns the task shown under a display number.
// ok is false when the number is out of range.
func (w *workspace) lookup(ctx context.Context, category string, num int) (task service.Task, ok bool, err error) {
	tasks, err := w.sync(ctx, category, false)
	if err != nil {
		return service.Task{}, false, err
	}
	sorted := todo.SortForDisplay(tasks)
	if num < 1 || num > len(sorted) {
		return service.Task{}, false, nil
	}
	return sorted[num-1], true, nil
}

func (w *workspace) close() {
	w.store().Close()
	if w.cache != nil {
		w.cache.Close()
	}
}

// printCategory prints a category section in display order.
func printCategory(w io.Writer, category string, letter rune, tasks []service.Task) {
	sorted := todo.SortForDisplay(tasks)
	done := 0
	for _, t := range sorted {
		if t.Completed {
			done++
		}
	}
	output.FormatCategoryHeader(w, category, letter, done, len(sorted))
	if len(sorted) == 0 {
		output.FormatEmpty(w)
		return
	}
	for i, t := range sorted {
		output.FormatTask(w, letter, i+1, t)
	}
}

// selectCategories returns the named category, or all of them when name is empty.
func selectCategories(cfg *config.Config, name string) ([]string, error) {
	if name == "" {
		return cfg.Categories, nil
	}
	category, err := targetCategory(cfg, name)
	if err != nil {
		return nil, err
	}
	return []string{category}, nil
}

// targetCategory returns the named category, or the default when name is empty.
func targetCategory(cfg *config.Config, name string) (string, error) {
	if name == "" {
		return cfg.DefaultCategory(), nil
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if !cfg.HasCategory(name) {
		return "", fmt.Errorf("unknown category: %s: %w", name, service.ErrValidation)
	}
	return name, nil
}

// syncWriter serializes writes from several goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
