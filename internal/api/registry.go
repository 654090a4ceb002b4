package api

import (
	"sync"

	"facet/internal/data"
	"facet/internal/reference"
	"facet/internal/schema"
)

// Entry pairs an entity definition with its data-access layer.
type Entry struct {
	Def    *schema.Definition
	Access *data.Access
}

// Registry is the server's entity directory. Registration happens at startup;
// lookups are read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	order    []string
	catalogs map[string]reference.Catalog
}

func NewRegistry(catalogs map[string]reference.Catalog) *Registry {
	if catalogs == nil {
		catalogs = map[string]reference.Catalog{}
	}
	return &Registry{
		entries:  make(map[string]*Entry),
		catalogs: catalogs,
	}
}

func (r *Registry) Register(def *schema.Definition, acc *data.Access) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name()]; !exists {
		r.order = append(r.order, def.Name())
	}
	r.entries[def.Name()] = &Entry{Def: def, Access: acc}
}

func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Catalog(name string) (reference.Catalog, bool) {
	c, ok := r.catalogs[name]
	return c, ok
}
