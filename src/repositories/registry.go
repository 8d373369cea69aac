package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"nodegraph/src/domain"
)

// AdapterRegistry holds the single active adapter.
type AdapterRegistry struct {
	mu      sync.RWMutex
	adapter Adapter
}

var defaultRegistry = &AdapterRegistry{}

func DefaultRegistry() *AdapterRegistry {
	return defaultRegistry
}

func (r *AdapterRegistry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug("Registering storage adapter", "adapter", fmt.Sprintf("%T", adapter))
	r.adapter = adapter
}

// Get returns the active adapter or an error wrapping domain.ErrNoAdapter.
func (r *AdapterRegistry) Get() (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.adapter == nil {
		return nil, domain.NewAdapterError("AdapterRegistry.Get", domain.ErrNoAdapter)
	}
	return r.adapter, nil
}

func (r *AdapterRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapter = nil
}

func (r *AdapterRegistry) swap(adapter Adapter) Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.adapter
	r.adapter = adapter
	return previous
}

func RegisterAdapter(adapter Adapter) {
	defaultRegistry.Register(adapter)
}

func ActiveAdapter() (Adapter, error) {
	return defaultRegistry.Get()
}

func ClearAdapter() {
	defaultRegistry.Clear()
}

// WithIsolatedAdapter installs adapter, runs fn and restores whatever was registered before,
// even when fn panics.
func WithIsolatedAdapter(ctx context.Context, adapter Adapter, fn func(ctx context.Context) error) error {
	previous := defaultRegistry.swap(adapter)
	defer defaultRegistry.swap(previous)

	return fn(ctx)
}
