package adplatform

import (
	"fmt"
	"sync"

	"github.com/adboard/backend/internal/domain/integration"
)

// Registry is the in-memory implementation of PlatformRegistry. Adapters are
// registered during startup; lookups afterwards are read-only, the mutex is
// there for safety during composition.
type Registry struct {
	mu       sync.RWMutex
	adapters map[integration.PlatformCode]integration.AdPlatform
}

// NewRegistry creates an empty platform registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[integration.PlatformCode]integration.AdPlatform),
	}
}

// Register adds an adapter under its own platform code, replacing any
// previous registration for that code
func (r *Registry) Register(adapter integration.AdPlatform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.PlatformCode()] = adapter
}

// Get returns the adapter for the specified code
func (r *Registry) Get(code integration.PlatformCode) (integration.AdPlatform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrPlatformNotRegistered, code)
	}
	return adapter, nil
}

// GetWithCapability returns the adapter only if it advertises the capability
func (r *Registry) GetWithCapability(code integration.PlatformCode, cap integration.Capability) (integration.AdPlatform, error) {
	adapter, err := r.Get(code)
	if err != nil {
		return nil, err
	}
	if !adapter.Capabilities().Has(cap) {
		return nil, fmt.Errorf("%w: %s", integration.ErrCapabilityNotOffered, code)
	}
	return adapter, nil
}

// List returns all registered adapters
func (r *Registry) List() []integration.AdPlatform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]integration.AdPlatform, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		adapters = append(adapters, adapter)
	}
	return adapters
}

// Ensure Registry implements PlatformRegistry interface
var _ integration.PlatformRegistry = (*Registry)(nil)
