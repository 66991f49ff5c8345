package services

import (
	"sort"
	"sync"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

// Handle pairs a connector with its call lock. Connectors are not required
// to be concurrency-safe, so every call path takes the handle lock first.
type Handle struct {
	mu        sync.Mutex
	connector driven.Connector
}

// Do runs fn with exclusive access to the connector.
func (h *Handle) Do(fn func(c driven.Connector) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.connector)
}

// Registry holds the registered connectors by name. Registration happens at
// startup; lookups happen on every request.
type Registry struct {
	mu       sync.RWMutex
	handles  map[string]*Handle
	ordering []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Register adds a connector under its own name. Names are unique;
// registering a duplicate is a startup bug and fails.
func (r *Registry) Register(c driven.Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, exists := r.handles[name]; exists {
		return domain.InvalidInputf("connector already registered: %s", name)
	}
	r.ordering = append(r.ordering, name)
	r.handles[name] = &Handle{connector: c}
	return nil
}

// Get returns the handle for name, or an InvalidInput error naming the
// unknown connector.
func (r *Registry) Get(name string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	if !ok {
		return nil, domain.InvalidInputf("Unknown connector: %s", name)
	}
	return h, nil
}

// Names returns the registered connector names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.ordering))
	copy(out, r.ordering)
	return out
}

// SortedNames returns the registered connector names alphabetically.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// Len reports the number of registered connectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
