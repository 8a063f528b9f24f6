// Package di provides dependency injection configuration for the artfetch server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/artfetch/internal/aggregate"
	"github.com/listenupapp/artfetch/internal/config"
	"github.com/listenupapp/artfetch/internal/di/providers"
	"github.com/listenupapp/artfetch/internal/fetch"
	"github.com/listenupapp/artfetch/internal/logger"
	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/provider"
	"github.com/listenupapp/artfetch/internal/safety"
	"github.com/listenupapp/artfetch/internal/service"
	"github.com/listenupapp/artfetch/internal/tags"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Cache layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchCache)

	// Safety and vocabulary
	do.Provide(injector, providers.ProvideTables)
	do.Provide(injector, providers.ProvideGuard)
	do.Provide(injector, providers.ProvideResolver)

	// Content providers
	do.Provide(injector, providers.ProvideHTTPClient)
	do.Provide(injector, providers.ProvideRegistry)

	// Search layer
	do.Provide(injector, providers.ProvideFetcher)
	do.Provide(injector, providers.ProvideAggregator)
	do.Provide(injector, providers.ProvideSearchService)

	// Workers
	do.Provide(injector, providers.ProvideTablesWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// This triggers lazy initialization, so configuration problems surface here
// rather than on the first request.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)

	for _, invoke := range []func() error{
		invokeErr[*providers.StoreHandle](injector),
		invokeErr[*providers.SearchCacheHandle](injector),
		invokeErr[*providers.TablesHandle](injector),
		invokeErr[*safety.Guard](injector),
		invokeErr[*provider.HTTPClient](injector),
		invokeErr[*provider.Registry](injector),
		invokeErr[*tags.Resolver](injector),
		invokeErr[*fetch.Fetcher](injector),
		invokeErr[*aggregate.Aggregator](injector),
		invokeErr[*service.SearchService](injector),
		invokeErr[*providers.TablesWatcherHandle](injector),
		invokeErr[*providers.HTTPServerHandle](injector),
	} {
		if err := invoke(); err != nil {
			return err
		}
	}
	return nil
}

func invokeErr[T any](injector do.Injector) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}
