// Package fetch walks a provider's result pages for one tag in small
// concurrent batches, retrying transient failures and stopping early once
// the provider runs dry.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/listenupapp/artfetch/internal/domain"
	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/provider"
)

// Defaults.
const (
	DefaultBatchSize  = 3
	DefaultMaxRetries = 2
	DefaultRetryStep  = 500 * time.Millisecond
	DefaultBatchDelay = 250 * time.Millisecond
	DefaultPageLimit  = 100
	DefaultMaxPages   = 20

	// DefaultEmptyPages is how many consecutive pages without new
	// records end the walk.
	DefaultEmptyPages = 2
)

// Config controls the page walk. Zero values take the defaults, except
// BatchDelay where zero means no delay. A negative MaxRetries disables
// retries.
type Config struct {
	BatchSize  int
	MaxRetries int
	RetryStep  time.Duration
	BatchDelay time.Duration
	PageLimit  int
	EmptyPages int
}

func (c *Config) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = DefaultMaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	}
	if c.RetryStep <= 0 {
		c.RetryStep = DefaultRetryStep
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.PageLimit <= 0 {
		c.PageLimit = DefaultPageLimit
	}
	if c.EmptyPages <= 0 {
		c.EmptyPages = DefaultEmptyPages
	}
}

// DefaultConfig returns the standard walk settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:  DefaultBatchSize,
		MaxRetries: DefaultMaxRetries,
		RetryStep:  DefaultRetryStep,
		BatchDelay: DefaultBatchDelay,
		PageLimit:  DefaultPageLimit,
		EmptyPages: DefaultEmptyPages,
	}
}

// Fetcher runs page walks. It holds no per-walk state and is safe for
// concurrent use.
type Fetcher struct {
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a fetcher.
func New(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Fetcher {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{cfg: cfg, metrics: m, logger: logger}
}

// FetchAllPages walks pages 1..maxPages of tag on p and returns every
// record not already seen in this walk, in page order.
//
// Pages are requested BatchSize at a time. After each batch the pages are
// inspected in order; a page that adds no new record extends the empty
// streak and a page that adds one resets it. Once the streak reaches
// EmptyPages the walk ends. Failed fetches count as empty pages.
func (f *Fetcher) FetchAllPages(ctx context.Context, p provider.ContentProvider, tag string, maxPages int) []domain.MediaRecord {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	seen := domain.NewDedupIndex()
	records := make([]domain.MediaRecord, 0)
	streak := 0
	lastPage := 0

	for start := 1; start <= maxPages; start += f.cfg.BatchSize {
		if start > 1 && !sleep(ctx, f.cfg.BatchDelay) {
			break
		}

		end := min(start+f.cfg.BatchSize-1, maxPages)
		pages := make([][]domain.MediaRecord, end-start+1)

		var wg sync.WaitGroup
		for i := range pages {
			wg.Go(func() {
				pages[i] = f.fetchPage(ctx, p, tag, start+i)
			})
		}
		wg.Wait()
		lastPage = end

		for _, page := range pages {
			added := 0
			for _, r := range page {
				if seen.Add(r) {
					records = append(records, r)
					added++
				}
			}
			if added == 0 {
				streak++
			} else {
				streak = 0
			}
		}

		if streak >= f.cfg.EmptyPages || ctx.Err() != nil {
			break
		}
	}

	f.logger.Debug("page walk finished",
		"provider", p.Name(),
		"tag", tag,
		"records", len(records),
		"last_page", lastPage,
		"max_pages", maxPages,
	)
	return records
}

// fetchPage fetches one page with retries. Any error that survives the
// retries is logged and absorbed into an empty page.
func (f *Fetcher) fetchPage(ctx context.Context, p provider.ContentProvider, tag string, page int) []domain.MediaRecord {
	var records []domain.MediaRecord

	op := func() error {
		recs, err := p.FetchPage(ctx, tag, page, f.cfg.PageLimit)
		if err != nil {
			if provider.IsPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		records = recs
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&LinearBackOff{Step: f.cfg.RetryStep}, uint64(f.cfg.MaxRetries)),
		ctx,
	)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		f.metrics.ProviderFetch(p.Name(), metrics.OutcomeRetry)
		f.logger.Debug("retrying page fetch",
			"provider", p.Name(),
			"tag", tag,
			"page", page,
			"wait", wait,
			"error", err,
		)
	})
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, provider.ErrRateLimited) {
			outcome = metrics.OutcomeRateLimited
		}
		f.metrics.ProviderFetch(p.Name(), outcome)
		if ctx.Err() == nil {
			f.logger.Warn("page fetch failed, treating as empty",
				"provider", p.Name(),
				"tag", tag,
				"page", page,
				"error", err,
			)
		}
		return nil
	}

	if len(records) == 0 {
		f.metrics.ProviderFetch(p.Name(), metrics.OutcomeEmpty)
	} else {
		f.metrics.ProviderFetch(p.Name(), metrics.OutcomeOK)
	}
	return records
}

// sleep waits for d or until ctx is done. Reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
