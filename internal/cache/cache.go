// Package cache holds fully ranked search supersets keyed by QueryKey.
//
// Entries live in a bounded in-memory ristretto cache with a per-entry TTL.
// An optional Backing store (Badger in production) persists entries across
// restarts; L1 misses fall through to it and hits are promoted back.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/listenupapp/artfetch/internal/domain"
	"github.com/listenupapp/artfetch/internal/metrics"
)

// Defaults.
const (
	DefaultMaxEntries = 1000
	DefaultTTL        = time.Hour
	DefaultEmptyTTL   = 5 * time.Minute
)

// Backing persists entries beyond the process lifetime.
type Backing interface {
	LoadSearch(ctx context.Context, key domain.QueryKey) (domain.SearchEntry, bool, error)
	SaveSearch(ctx context.Context, entry domain.SearchEntry) error
	DeleteSearch(ctx context.Context, key domain.QueryKey) error
	DeleteAllSearches(ctx context.Context) error
}

// Config bounds the cache. Zero values take the defaults.
type Config struct {
	MaxEntries int64
	TTL        time.Duration
	EmptyTTL   time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.EmptyTTL <= 0 {
		c.EmptyTTL = min(DefaultEmptyTTL, c.TTL)
	}
}

// SearchCache is safe for concurrent use.
type SearchCache struct {
	l1      *ristretto.Cache[string, domain.SearchEntry]
	backing Backing
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a cache. backing may be nil for a memory-only cache.
func New(cfg Config, backing Backing, m *metrics.Metrics, logger *slog.Logger) (*SearchCache, error) {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	l1, err := ristretto.NewCache(&ristretto.Config[string, domain.SearchEntry]{
		NumCounters:        cfg.MaxEntries * 10,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}

	return &SearchCache{
		l1:      l1,
		backing: backing,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}, nil
}

// TTL returns the lifetime given to an entry holding n records.
func (c *SearchCache) TTL(n int) time.Duration {
	if n == 0 {
		return c.cfg.EmptyTTL
	}
	return c.cfg.TTL
}

// Get returns the live entry for key.
func (c *SearchCache) Get(ctx context.Context, key domain.QueryKey) (domain.SearchEntry, bool) {
	now := time.Now()

	if entry, ok := c.l1.Get(string(key)); ok && !entry.Expired(now) {
		c.metrics.CacheLookup(true)
		c.logger.Debug("search cache hit", "key", key, "records", len(entry.Records))
		return entry, true
	}

	if c.backing != nil {
		entry, found, err := c.backing.LoadSearch(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("search cache backing lookup failed", "key", key, "error", err)
		case found && !entry.Expired(now):
			c.store(entry)
			c.metrics.CacheLookup(true)
			c.logger.Debug("search cache hit from backing store", "key", key, "records", len(entry.Records))
			return entry, true
		}
	}

	c.metrics.CacheLookup(false)
	return domain.SearchEntry{}, false
}

// Set stores records under key and returns the stored entry.
// The records slice must not be modified afterwards.
func (c *SearchCache) Set(ctx context.Context, key domain.QueryKey, records []domain.MediaRecord) domain.SearchEntry {
	if records == nil {
		records = []domain.MediaRecord{}
	}

	now := time.Now()
	entry := domain.SearchEntry{
		Key:       key,
		Records:   records,
		FetchedAt: now,
		ExpiresAt: now.Add(c.TTL(len(records))),
	}

	c.store(entry)

	if c.backing != nil {
		if err := c.backing.SaveSearch(ctx, entry); err != nil {
			c.logger.Warn("failed to persist search cache entry", "key", key, "error", err)
		}
	}
	return entry
}

func (c *SearchCache) store(entry domain.SearchEntry) {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if !c.l1.SetWithTTL(string(entry.Key), entry, 1, ttl) {
		c.logger.Debug("search cache entry rejected", "key", entry.Key)
		return
	}
	c.l1.Wait()
}

// Delete invalidates key.
func (c *SearchCache) Delete(ctx context.Context, key domain.QueryKey) error {
	c.l1.Del(string(key))
	if c.backing != nil {
		if err := c.backing.DeleteSearch(ctx, key); err != nil {
			return fmt.Errorf("delete cached search %q: %w", key, err)
		}
	}
	return nil
}

// Clear drops every entry.
func (c *SearchCache) Clear(ctx context.Context) error {
	c.l1.Clear()
	if c.backing != nil {
		if err := c.backing.DeleteAllSearches(ctx); err != nil {
			return fmt.Errorf("clear cached searches: %w", err)
		}
	}
	return nil
}

// Close releases the in-memory cache. The backing store is closed by its owner.
func (c *SearchCache) Close() {
	c.l1.Close()
}
