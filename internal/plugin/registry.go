package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/R3E-Network/extension_server/services/base"
)

// Registry maps service identifiers to their registration.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]serviceEntry
}

// serviceEntry holds a factory and its metadata.
type serviceEntry struct {
	factory base.Factory
	info    ServiceInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]serviceEntry)}
}

// Default is the process-wide table populated by service init() functions.
var Default = NewRegistry()

// Register adds a service factory to the registry.
// Panics if a service with the same ID is already registered.
func (r *Registry) Register(id string, info ServiceInfo, factory base.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		panic(fmt.Sprintf("plugin: service %q already registered", id))
	}

	info.ID = id
	r.entries[id] = serviceEntry{
		factory: factory,
		info:    info,
	}
}

// Resolve maps id to its descriptor. It fails with a *ResolutionError when
// the id is unknown or its registration is incomplete.
func (r *Registry) Resolve(id string) (Descriptor, error) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		return Descriptor{}, &ResolutionError{ID: id, Err: ErrUnknownService}
	}
	if strings.TrimSpace(entry.info.Feature) == "" {
		return Descriptor{}, &ResolutionError{ID: id, Err: fmt.Errorf("%w: no feature declaration", ErrMalformedDescriptor)}
	}
	if entry.factory == nil {
		return Descriptor{}, &ResolutionError{ID: id, Err: fmt.Errorf("%w: no factory", ErrMalformedDescriptor)}
	}

	return Descriptor{
		ID:              id,
		RequiredFeature: entry.info.Feature,
		Core:            entry.info.Core,
		Handle:          base.Handle{ID: id, Factory: entry.factory},
	}, nil
}

// List returns all registered service IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info returns the ServiceInfo for a registered service.
func (r *Registry) Info(id string) (ServiceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return ServiceInfo{}, false
	}
	return entry.info, true
}

// IsRegistered checks if a service is registered.
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Count returns the number of registered services.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Register adds a service to the Default registry. Call it from init().
func Register(id string, info ServiceInfo, factory base.Factory) {
	Default.Register(id, info, factory)
}

// Resolve resolves id against the Default registry.
func Resolve(id string) (Descriptor, error) {
	return Default.Resolve(id)
}

// List returns the IDs registered in the Default registry.
func List() []string {
	return Default.List()
}
