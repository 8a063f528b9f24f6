package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/artfetch/internal/config"
	"github.com/listenupapp/artfetch/internal/logger"
	"github.com/listenupapp/artfetch/internal/provider"
	"github.com/listenupapp/artfetch/internal/safety"
	"github.com/listenupapp/artfetch/internal/tables"
	"github.com/listenupapp/artfetch/internal/tags"
)

// TablesHandle holds the override tables loaded at startup.
// Tables is nil when the built-in tables are used.
type TablesHandle struct {
	Tables *tables.Tables
}

// ProvideTables loads the table override file, if configured.
func ProvideTables(i do.Injector) (*TablesHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Tables.Path == "" {
		return &TablesHandle{}, nil
	}

	t, err := tables.Load(cfg.Tables.Path)
	if err != nil {
		return nil, err
	}
	log.Info("Tables loaded", "path", cfg.Tables.Path, "blocklist", t.Policy().Size())
	return &TablesHandle{Tables: t}, nil
}

// ProvideGuard provides the shared safety guard.
func ProvideGuard(i do.Injector) (*safety.Guard, error) {
	log := do.MustInvoke[*logger.Logger](i)
	th := do.MustInvoke[*TablesHandle](i)

	var policy *safety.Policy
	if th.Tables != nil {
		policy = th.Tables.Policy()
	}
	return safety.NewGuard(policy, log.Component("safety")), nil
}

// ProvideResolver provides the tag resolver. The first registered
// provider able to probe backs the live probe.
func ProvideResolver(i do.Injector) (*tags.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	registry := do.MustInvoke[*provider.Registry](i)
	th := do.MustInvoke[*TablesHandle](i)

	var prober tags.Prober
	if tp, ok := registry.Prober(); ok && !cfg.Resolver.DisableProbe {
		prober = tp
	}

	r := tags.NewResolver(prober, tags.Config{
		ProbeTimeout: cfg.Resolver.ProbeTimeout,
		DisableProbe: cfg.Resolver.DisableProbe,
	}, log.Component("resolver"))

	if th.Tables != nil {
		r.SetVocabulary(th.Tables.Vocabulary())
	}
	return r, nil
}

// TablesWatcherHandle wraps the tables watcher with shutdown capability.
type TablesWatcherHandle struct {
	watcher *tables.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *TablesWatcherHandle) Shutdown() error {
	if h.watcher == nil {
		return nil
	}
	h.cancel()
	return h.watcher.Stop()
}

// ProvideTablesWatcher reloads the tables file on change and swaps the
// new policy and vocabulary in without a restart.
func ProvideTablesWatcher(i do.Injector) (*TablesWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	guard := do.MustInvoke[*safety.Guard](i)
	resolver := do.MustInvoke[*tags.Resolver](i)

	if cfg.Tables.Path == "" || !cfg.Tables.Watch {
		return &TablesWatcherHandle{}, nil
	}

	w, err := tables.NewWatcher(cfg.Tables.Path, 0, func(t *tables.Tables) {
		guard.Swap(t.Policy())
		resolver.SetVocabulary(t.Vocabulary())
	}, log.Component("tables"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	log.Info("Watching tables file", "path", cfg.Tables.Path)

	return &TablesWatcherHandle{watcher: w, cancel: cancel}, nil
}
