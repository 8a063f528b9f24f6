package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/artfetch/internal/aggregate"
	"github.com/listenupapp/artfetch/internal/config"
	"github.com/listenupapp/artfetch/internal/fetch"
	"github.com/listenupapp/artfetch/internal/logger"
	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/provider"
	"github.com/listenupapp/artfetch/internal/safety"
	"github.com/listenupapp/artfetch/internal/service"
	"github.com/listenupapp/artfetch/internal/tags"
)

// ProvideFetcher provides the batched page fetcher.
func ProvideFetcher(i do.Injector) (*fetch.Fetcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return fetch.New(fetch.Config{
		BatchSize:  cfg.Fetch.BatchSize,
		MaxRetries: cfg.Fetch.MaxRetries,
		RetryStep:  cfg.Fetch.RetryStep,
		BatchDelay: cfg.Fetch.BatchDelay,
		PageLimit:  cfg.Fetch.PageLimit,
		EmptyPages: cfg.Fetch.EmptyPages,
	}, m, log.Component("fetch")), nil
}

// ProvideAggregator provides the aggregation engine.
func ProvideAggregator(i do.Injector) (*aggregate.Aggregator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return aggregate.New(aggregate.Options{
		Resolver:   do.MustInvoke[*tags.Resolver](i),
		Providers:  do.MustInvoke[*provider.Registry](i),
		Fetcher:    do.MustInvoke[*fetch.Fetcher](i),
		Cache:      do.MustInvoke[*SearchCacheHandle](i).SearchCache,
		Guard:      do.MustInvoke[*safety.Guard](i),
		Metrics:    do.MustInvoke[*metrics.Metrics](i),
		Logger:     log.Component("aggregate"),
		MaxPages:   cfg.Fetch.MaxPages,
		RunTimeout: cfg.Fetch.RunTimeout,
	})
}

// ProvideSearchService provides the pagination façade.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	agg := do.MustInvoke[*aggregate.Aggregator](i)
	resolver := do.MustInvoke[*tags.Resolver](i)

	return service.NewSearchService(agg, resolver, log.Component("search")), nil
}
