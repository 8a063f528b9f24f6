package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/artfetch/internal/cache"
	"github.com/listenupapp/artfetch/internal/config"
	"github.com/listenupapp/artfetch/internal/logger"
	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
// Store is nil when the cache runs in memory only.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	if h.Store == nil {
		return nil
	}
	return h.Close()
}

// ProvideStore provides the persistent cache store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Cache.Path == "" {
		log.Info("Search cache is memory only")
		return &StoreHandle{}, nil
	}

	s, err := store.New(cfg.Cache.Path, log.Component("store"))
	if err != nil {
		return nil, err
	}
	return &StoreHandle{Store: s}, nil
}

// SearchCacheHandle wraps the search cache with shutdown capability.
type SearchCacheHandle struct {
	*cache.SearchCache
}

// Shutdown implements do.Shutdownable.
func (h *SearchCacheHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideSearchCache provides the two-level search cache.
func ProvideSearchCache(i do.Injector) (*SearchCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	var backing cache.Backing
	if storeHandle.Store != nil {
		backing = storeHandle.Store
	}

	c, err := cache.New(cache.Config{
		MaxEntries: int64(cfg.Cache.MaxEntries),
		TTL:        cfg.Cache.TTL,
		EmptyTTL:   cfg.Cache.EmptyTTL,
	}, backing, m, log.Component("cache"))
	if err != nil {
		return nil, err
	}
	return &SearchCacheHandle{SearchCache: c}, nil
}
