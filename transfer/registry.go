// Package transfer drives queued share links through provider adapters:
// resolve the share, list one page of its contents, copy into the
// destination account.
package transfer

import (
	"pansave/internal"
)

// Registry maps platform tags to their registered provider adapters.
// Dispatch happens once per queued item; unregistered platforms are
// skipped, not failed.
type Registry struct {
	adapters map[internal.Platform]internal.ProviderAdapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[internal.Platform]internal.ProviderAdapter),
	}
}

// Register adds an adapter, replacing any previous adapter for the same
// platform
func (r *Registry) Register(adapter internal.ProviderAdapter) {
	r.adapters[adapter.Platform()] = adapter
}

// Lookup returns the adapter registered for the platform
func (r *Registry) Lookup(platform internal.Platform) (internal.ProviderAdapter, bool) {
	adapter, ok := r.adapters[platform]
	return adapter, ok
}

// Platforms returns every platform with a registered adapter
func (r *Registry) Platforms() []internal.Platform {
	platforms := make([]internal.Platform, 0, len(r.adapters))
	for _, p := range internal.AllPlatforms() {
		if _, ok := r.adapters[p]; ok {
			platforms = append(platforms, p)
		}
	}
	return platforms
}
