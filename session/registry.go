package session

import (
	"context"
	"fmt"
	"nessql/logger"
	"sync"
)

// Registry owns the database list and the single active selection.
type Registry struct {
	backend Backend
	out     Presenter
	stats   *StatisticsPanel

	mu       sync.Mutex
	gen      generation
	handles  []string
	selected string
}

func NewRegistry(backend Backend, out Presenter, stats *StatisticsPanel) *Registry {
	return &Registry{backend: backend, out: out, stats: stats}
}

// Refresh replaces the list wholesale. A non-empty list selects its first
// entry and loads statistics for it exactly once. On failure the previous
// list and selection are kept.
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	id := r.gen.next()
	r.mu.Unlock()

	handles, err := r.backend.ListDatabases(ctx)

	r.mu.Lock()
	if !r.gen.current(id) {
		r.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		r.mu.Unlock()
		logger.Error("Listing databases failed: %v", err)
		r.out.Alert(alertText("Failed to load databases: ", err))
		return err
	}

	r.handles = append([]string(nil), handles...)
	r.selected = ""
	if len(r.handles) > 0 {
		r.selected = r.handles[0]
	}
	selected := r.selected
	r.out.ShowDatabases(append([]string(nil), r.handles...), selected)
	r.mu.Unlock()

	logger.Info("Loaded %d databases", len(handles))
	if selected == "" {
		return nil
	}
	return r.stats.Load(ctx, selected)
}

// Select makes handle the active database and reloads statistics for it.
// Only handles from the last refresh are accepted. A refresh still in flight
// is superseded and will not move the selection back.
func (r *Registry) Select(ctx context.Context, handle string) error {
	r.mu.Lock()
	found := false
	for _, h := range r.handles {
		if h == handle {
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		r.out.Alert(fmt.Sprintf("Unknown database %q.", handle))
		return fmt.Errorf("unknown database %q", handle)
	}
	changed := r.selected != handle
	r.gen.next()
	r.selected = handle
	r.out.ShowDatabases(append([]string(nil), r.handles...), handle)
	r.mu.Unlock()

	if changed {
		logger.Info("Selected database %s", handle)
	}
	return r.stats.Load(ctx, handle)
}

// Current returns the active handle, "" when none.
func (r *Registry) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Handles returns the list from the last successful refresh.
func (r *Registry) Handles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.handles...)
}
