// Package aggregate builds the ranked, deduplicated superset for a query.
//
// On a cache miss the query's tag candidates are tried most specific
// first. Each candidate is walked on every provider concurrently, the
// results are merged in provider priority order and the first candidate
// that yields anything wins. The superset is validated, sorted by score
// and cached; concurrent misses for the same key share one run.
package aggregate

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/listenupapp/artfetch/internal/cache"
	"github.com/listenupapp/artfetch/internal/domain"
	apperrors "github.com/listenupapp/artfetch/internal/errors"
	"github.com/listenupapp/artfetch/internal/fetch"
	"github.com/listenupapp/artfetch/internal/id"
	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/provider"
	"github.com/listenupapp/artfetch/internal/safety"
)

// DefaultRunTimeout bounds a single aggregation run.
const DefaultRunTimeout = 2 * time.Minute

// Resolver turns a query into ordered tag candidates.
type Resolver interface {
	Resolve(ctx context.Context, subject string, collection *string) []string
}

// Options wires an Aggregator. Resolver, Providers, Fetcher and Cache are
// required.
type Options struct {
	Resolver  Resolver
	Providers *provider.Registry
	Fetcher   *fetch.Fetcher
	Cache     *cache.SearchCache
	Guard     *safety.Guard
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// MaxPages bounds each provider walk. Zero means fetch.DefaultMaxPages.
	MaxPages int
	// RunTimeout bounds a shared run, independent of any one caller.
	RunTimeout time.Duration
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	resolver   Resolver
	providers  *provider.Registry
	fetcher    *fetch.Fetcher
	cache      *cache.SearchCache
	guard      *safety.Guard
	metrics    *metrics.Metrics
	logger     *slog.Logger
	maxPages   int
	runTimeout time.Duration

	group singleflight.Group

	// generation counts invalidations. A run that started before the
	// latest one returns its result without caching it.
	genMu      sync.Mutex
	generation uint64
}

// New creates an aggregator.
func New(opts Options) (*Aggregator, error) {
	switch {
	case opts.Resolver == nil:
		return nil, apperrors.Configuration("aggregator: resolver is required")
	case opts.Providers == nil:
		return nil, apperrors.Configuration("aggregator: provider registry is required")
	case opts.Fetcher == nil:
		return nil, apperrors.Configuration("aggregator: fetcher is required")
	case opts.Cache == nil:
		return nil, apperrors.Configuration("aggregator: cache is required")
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Guard == nil {
		opts.Guard = safety.NewGuard(nil, opts.Logger)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = fetch.DefaultMaxPages
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}

	return &Aggregator{
		resolver:   opts.Resolver,
		providers:  opts.Providers,
		fetcher:    opts.Fetcher,
		cache:      opts.Cache,
		guard:      opts.Guard,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		maxPages:   opts.MaxPages,
		runTimeout: opts.RunTimeout,
	}, nil
}

// Aggregate returns one page of the query's superset and the total page
// count. A query with no results yields an empty page and totalPages 1.
// The only error is the caller's context ending first.
func (a *Aggregator) Aggregate(ctx context.Context, subject string, collection *string, page, pageSize int) ([]domain.MediaRecord, int, error) {
	entry, _, err := a.Superset(ctx, subject, collection)
	if err != nil {
		return nil, 0, err
	}
	p := domain.Paginate(entry.Records, page, pageSize)
	return p.Records, p.TotalPages, nil
}

// Superset returns the full ranked result set for the query and whether it
// came from the cache.
func (a *Aggregator) Superset(ctx context.Context, subject string, collection *string) (domain.SearchEntry, bool, error) {
	key := domain.NewQueryKey(subject, collection)

	if entry, ok := a.cache.Get(ctx, key); ok {
		return a.rescreen(entry), true, nil
	}

	// The run is detached from the caller so that one caller giving up
	// does not fail everyone waiting on the same key.
	ch := a.group.DoChan(string(key), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.runTimeout)
		defer cancel()
		return a.run(runCtx, key, subject, collection), nil
	})

	select {
	case <-ctx.Done():
		return domain.SearchEntry{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.SearchEntry{}, false, res.Err
		}
		if res.Shared {
			a.logger.Debug("joined in-flight aggregation", "key", key)
		}
		return a.rescreen(res.Val.(domain.SearchEntry)), false, nil
	}
}

// Invalidate drops the cached superset for the query. Runs in flight at
// the time still answer their callers but do not cache.
func (a *Aggregator) Invalidate(ctx context.Context, subject string, collection *string) error {
	key := domain.NewQueryKey(subject, collection)

	a.genMu.Lock()
	defer a.genMu.Unlock()
	a.generation++
	a.group.Forget(string(key))
	return a.cache.Delete(ctx, key)
}

// Clear drops every cached superset.
func (a *Aggregator) Clear(ctx context.Context) error {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	a.generation++
	return a.cache.Clear(ctx)
}

// rescreen drops records that fail the active block-list. Supersets
// cached before a table reload are filtered on the way out; the stored
// entry is left untouched.
func (a *Aggregator) rescreen(entry domain.SearchEntry) domain.SearchEntry {
	policy := a.guard.Policy()

	var kept []domain.MediaRecord
	for i, r := range entry.Records {
		if _, blocked := policy.BlockedTag(r.Tags); !blocked {
			if kept != nil {
				kept = append(kept, r)
			}
			continue
		}
		if kept == nil {
			kept = append(make([]domain.MediaRecord, 0, len(entry.Records)-1), entry.Records[:i]...)
		}
		a.metrics.RecordsDropped(r.Source, metrics.DropBlocklist, 1)
	}

	if kept == nil {
		return entry
	}
	entry.Records = kept
	return entry
}

func (a *Aggregator) currentGeneration() uint64 {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	return a.generation
}

func (a *Aggregator) run(ctx context.Context, key domain.QueryKey, subject string, collection *string) domain.SearchEntry {
	start := time.Now()
	gen := a.currentGeneration()
	logger := a.logger.With("run_id", id.Run(), "key", key)

	candidates := a.resolver.Resolve(ctx, subject, collection)
	providers := a.providers.All()
	check := newChecker(a.guard.Policy(), a.providers.AssetHosts())

	var (
		records []domain.MediaRecord
		winner  string
		tried   int
	)
	for _, tag := range candidates {
		if ctx.Err() != nil {
			break
		}
		tried++

		records = a.merge(a.fanOut(ctx, providers, tag), check)
		if len(records) > 0 {
			winner = tag
			break
		}
		logger.Debug("candidate produced no records", "tag", tag)
	}

	slices.SortStableFunc(records, func(x, y domain.MediaRecord) int {
		return cmp.Compare(y.Score, x.Score)
	})

	elapsed := time.Since(start)
	a.metrics.Aggregation(len(records) > 0, elapsed)

	if err := ctx.Err(); err != nil {
		logger.Warn("aggregation cut short, result not cached",
			"records", len(records),
			"candidates_tried", tried,
			"error", err,
		)
		return domain.SearchEntry{Key: key, Records: records, FetchedAt: start}
	}

	logger.Info("aggregation complete",
		"records", len(records),
		"tag", winner,
		"candidates_tried", tried,
		"candidates", len(candidates),
		"duration", elapsed,
	)
	a.genMu.Lock()
	defer a.genMu.Unlock()
	if a.generation != gen {
		logger.Info("cache invalidated during aggregation, result not cached")
		return domain.SearchEntry{Key: key, Records: records, FetchedAt: start}
	}
	return a.cache.Set(ctx, key, records)
}

// fanOut walks tag on every provider concurrently. Results are indexed by
// provider priority.
func (a *Aggregator) fanOut(ctx context.Context, providers []provider.ContentProvider, tag string) [][]domain.MediaRecord {
	results := make([][]domain.MediaRecord, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Go(func() {
			results[i] = a.fetcher.FetchAllPages(ctx, p, tag, a.maxPages)
		})
	}
	wg.Wait()

	return results
}

// merge flattens per-provider results in priority order, dropping
// duplicates and anything that fails the final checks.
func (a *Aggregator) merge(results [][]domain.MediaRecord, check checker) []domain.MediaRecord {
	seen := domain.NewDedupIndex()
	merged := make([]domain.MediaRecord, 0)

	for _, batch := range results {
		for _, r := range batch {
			if reason, ok := check.accept(r); !ok {
				a.metrics.RecordsDropped(r.Source, reason, 1)
				continue
			}
			if seen.Add(r) {
				merged = append(merged, r)
			}
		}
	}
	return merged
}
