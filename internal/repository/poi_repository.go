// Package repository owns the canonical, ordered POI collection and mediates
// every read and write through a storage.Store.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Netonia/POIMapper/internal/models"
	"github.com/Netonia/POIMapper/internal/storage"
)

// DefaultKey is the storage key under which the collection is persisted.
const DefaultKey = "poimapper_pois"

// Option configures a Repository.
type Option func(*Repository)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(r *Repository) {
		if key != "" {
			r.key = key
		}
	}
}

// WithLogger sets the logger used for listener failures and persistence.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Repository holds the POI list in insertion order. Every mutation is
// persisted in full before it becomes visible to readers, and listeners are
// notified only after persistence succeeds.
//
// Slices returned by read methods are snapshots; mutating them has no effect
// on the repository.
type Repository struct {
	store  storage.Store
	key    string
	logger *slog.Logger

	mu   sync.RWMutex
	pois []models.POI

	listeners *observers
}

// New creates a Repository backed by store. Call Initialize before use.
func New(store storage.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		key:    DefaultKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.listeners = &observers{logger: r.logger}
	return r
}

// Subscribe registers a listener and returns a function that removes it.
// Listeners run synchronously, in registration order.
func (r *Repository) Subscribe(fn Listener) (unsubscribe func()) {
	return r.listeners.add(fn)
}

// Initialize loads the persisted collection, replacing in-memory state.
// A missing key yields an empty collection.
func (r *Repository) Initialize(ctx context.Context) error {
	var loaded []models.POI
	found, err := r.store.Get(ctx, r.key, &loaded)
	if err != nil {
		return fmt.Errorf("failed to load POIs: %w", err)
	}
	if !found || loaded == nil {
		loaded = []models.POI{}
	}

	r.mu.Lock()
	r.pois = loaded
	count := len(loaded)
	r.mu.Unlock()

	r.logger.Debug("POIs loaded", "key", r.key, "count", count, "found", found)
	r.listeners.notify(ctx, Event{Kind: EventInitialized, Count: count})
	return nil
}

// GetAll returns a snapshot of the full collection.
func (r *Repository) GetAll() []models.POI {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.snapshotLocked())
}

// Count returns the number of POIs.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pois)
}

// GetByID returns the first POI with the given id.
func (r *Repository) GetByID(id string) (models.POI, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.pois {
		if p.ID == id {
			return p, true
		}
	}
	return models.POI{}, false
}

// Add appends poi and persists the collection. The caller supplies the ID
// (see models.NewPOI).
func (r *Repository) Add(ctx context.Context, poi models.POI) error {
	r.mu.Lock()
	next := append(slices.Clone(r.snapshotLocked()), poi)
	if err := r.commitLocked(ctx, next); err != nil {
		r.mu.Unlock()
		return err
	}
	count := len(next)
	r.mu.Unlock()

	r.listeners.notify(ctx, Event{Kind: EventAdded, ID: poi.ID, Count: count})
	return nil
}

// Update replaces the first POI whose ID matches poi.ID, keeping its
// position. When no POI matches nothing is persisted, no listener fires, and
// Update returns false with a nil error.
func (r *Repository) Update(ctx context.Context, poi models.POI) (bool, error) {
	r.mu.Lock()
	idx := slices.IndexFunc(r.pois, func(p models.POI) bool { return p.ID == poi.ID })
	if idx < 0 {
		r.mu.Unlock()
		return false, nil
	}

	next := slices.Clone(r.pois)
	next[idx] = poi
	if err := r.commitLocked(ctx, next); err != nil {
		r.mu.Unlock()
		return false, err
	}
	count := len(next)
	r.mu.Unlock()

	r.listeners.notify(ctx, Event{Kind: EventUpdated, ID: poi.ID, Count: count})
	return true, nil
}

// Delete removes every POI with the given id. The collection is persisted and
// listeners are notified even when nothing matched.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	next := slices.DeleteFunc(slices.Clone(r.snapshotLocked()), func(p models.POI) bool { return p.ID == id })
	if err := r.commitLocked(ctx, next); err != nil {
		r.mu.Unlock()
		return err
	}
	count := len(next)
	r.mu.Unlock()

	r.listeners.notify(ctx, Event{Kind: EventDeleted, ID: id, Count: count})
	return nil
}

// FilterByCategory returns POIs whose category equals category exactly.
// An empty category or models.AllCategories returns the full collection.
func (r *Repository) FilterByCategory(category string) []models.POI {
	return r.Query(category, "")
}

// SearchByText returns POIs whose name or description contains text,
// ignoring case. An empty text returns the full collection.
func (r *Repository) SearchByText(text string) []models.POI {
	return r.Query("", text)
}

// Query applies the category filter and then the text search.
func (r *Repository) Query(category, text string) []models.POI {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.POI, 0, len(r.pois))
	for _, p := range r.pois {
		if p.MatchesCategory(category) && p.MatchesText(text) {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (r *Repository) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, p := range r.pois {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// snapshotLocked never returns nil so an empty collection encodes as [].
func (r *Repository) snapshotLocked() []models.POI {
	if r.pois == nil {
		return []models.POI{}
	}
	return r.pois
}

// commitLocked persists next and, on success, makes it the current state.
// On failure the in-memory state is left untouched.
func (r *Repository) commitLocked(ctx context.Context, next []models.POI) error {
	if err := r.store.Set(ctx, r.key, next); err != nil {
		r.logger.Error("Failed to persist POIs", "key", r.key, "error", err)
		return fmt.Errorf("failed to persist POIs: %w", err)
	}
	r.pois = next
	return nil
}
