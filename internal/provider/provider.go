// Package provider defines the content provider abstraction and the
// shared outbound HTTP client used by the concrete adapters.
package provider

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/listenupapp/artfetch/internal/domain"
)

// ContentProvider fetches one page of safe records for a tag.
//
// Returned records have already passed the provider's rating filter and
// the shared block-list. Implementations return classified errors
// (see ErrRateLimited, ErrServer, ErrBadRequest, ErrMalformed); callers
// decide whether to retry or absorb them.
type ContentProvider interface {
	Name() string
	FetchPage(ctx context.Context, tag string, page, limit int) ([]domain.MediaRecord, error)
}

// TagProber is implemented by providers that can run a wildcard probe.
// It returns every tag seen on matching safe records together with the
// number of records it appeared on.
type TagProber interface {
	ProbeTags(ctx context.Context, pattern string, limit int) (map[string]int, error)
}

// HostProvider is implemented by providers that know which hosts serve
// their assets.
type HostProvider interface {
	AssetHosts() []string
}

// Registry holds providers in fixed priority order. Registration order
// is merge order: earlier providers win when two return the same asset.
type Registry struct {
	mu        sync.RWMutex
	providers []ContentProvider
}

// NewRegistry creates a registry with the given providers in order.
func NewRegistry(providers ...ContentProvider) (*Registry, error) {
	r := &Registry{}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a provider at the lowest priority.
func (r *Registry) Register(p ContentProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.providers {
		if existing.Name() == p.Name() {
			return fmt.Errorf("provider %q already registered", p.Name())
		}
	}
	r.providers = append(r.providers, p)
	return nil
}

// All returns the providers in priority order.
func (r *Registry) All() []ContentProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.providers)
}

// Names returns provider names in priority order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Prober returns the first registered provider that supports tag probing.
func (r *Registry) Prober() (TagProber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if tp, ok := p.(TagProber); ok {
			return tp, true
		}
	}
	return nil, false
}

// AssetHosts returns the union of asset hosts across providers.
func (r *Registry) AssetHosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var hosts []string
	for _, p := range r.providers {
		hp, ok := p.(HostProvider)
		if !ok {
			continue
		}
		for _, h := range hp.AssetHosts() {
			if !slices.Contains(hosts, h) {
				hosts = append(hosts, h)
			}
		}
	}
	return hosts
}
