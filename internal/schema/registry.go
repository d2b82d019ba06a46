package schema

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

// CustomIndexLister provides the stored custom index definitions.
// Implemented by repository.CustomIndexRepository.
type CustomIndexLister interface {
	List(ctx context.Context) ([]domain.CustomIndex, error)
}

// Registry holds the known index schemas: built-ins plus lazily loaded custom
// definitions. It is constructed once at startup and passed explicitly to the
// components that need it.
type Registry struct {
	mu     sync.RWMutex
	lister CustomIndexLister
	byID   map[string]*domain.IndexSchema
	loaded bool
}

// NewRegistry creates a registry seeded with the built-in schemas.
// lister may be nil when custom indexes are not available (tests, offline CLI).
func NewRegistry(lister CustomIndexLister) *Registry {
	r := &Registry{
		lister: lister,
		byID:   make(map[string]*domain.IndexSchema),
	}
	for _, s := range builtinSchemas() {
		r.byID[s.ID] = s
	}
	return r
}

// LoadCustom loads custom index definitions on first call; later calls are
// no-ops. Use Reload to pick up changes.
func (r *Registry) LoadCustom(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	return r.Reload(ctx)
}

// Reload re-reads custom index definitions from the store, replacing the
// previously loaded set. Built-in schemas are never replaced.
func (r *Registry) Reload(ctx context.Context) error {
	if r.lister == nil {
		r.mu.Lock()
		r.loaded = true
		r.mu.Unlock()
		return nil
	}

	customs, err := r.lister.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load custom indexes: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*domain.IndexSchema, len(builtinSchemas())+len(customs))
	for _, s := range builtinSchemas() {
		next[s.ID] = s
	}
	for i := range customs {
		s := customs[i].Schema()
		// A custom slug never shadows a built-in schema.
		if _, exists := next[s.ID]; exists {
			continue
		}
		next[s.ID] = s
	}
	r.byID = next
	r.loaded = true
	return nil
}

// Get returns the schema for an index ID.
func (r *Registry) Get(indexID string) (*domain.IndexSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[indexID]
	return s, ok
}

// GetAll returns every known schema sorted by ID.
func (r *Registry) GetAll() []*domain.IndexSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.IndexSchema, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
