package papersources

import (
	"sync"

	"github.com/clindex/research-pipeline-service/internal/domain"
)

// Registry manages the configured source adapters. It provides thread-safe
// registration and retrieval; concurrent fan-out over the registered sources
// is the fanout package's job.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]SearchSource
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]SearchSource),
	}
}

// Register adds a source to the registry.
// If a source with the same type already exists, it will be replaced.
// This method is thread-safe.
func (r *Registry) Register(source SearchSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns a source by type, or nil if not found.
// This method is thread-safe.
func (r *Registry) Get(sourceType domain.SourceType) SearchSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// AllSources returns all registered sources.
// The returned slice is a snapshot and is safe to iterate even if sources
// are added or removed concurrently.
// This method is thread-safe.
func (r *Registry) AllSources() []SearchSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]SearchSource, 0, len(r.sources))
	for _, source := range r.sources {
		sources = append(sources, source)
	}
	return sources
}

// EnabledSources returns only enabled sources.
// Sources are considered enabled if their IsEnabled() method returns true.
// This method is thread-safe.
func (r *Registry) EnabledSources() []SearchSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]SearchSource, 0, len(r.sources))
	for _, source := range r.sources {
		if source.IsEnabled() {
			sources = append(sources, source)
		}
	}
	return sources
}
