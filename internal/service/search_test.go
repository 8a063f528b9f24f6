package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/artfetch/internal/aggregate"
	"github.com/listenupapp/artfetch/internal/cache"
	"github.com/listenupapp/artfetch/internal/domain"
	apperrors "github.com/listenupapp/artfetch/internal/errors"
	"github.com/listenupapp/artfetch/internal/fetch"
	"github.com/listenupapp/artfetch/internal/provider"
	"github.com/listenupapp/artfetch/internal/provider/providertest"
	"github.com/listenupapp/artfetch/internal/tags"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAggregator returns a fixed superset.
type stubAggregator struct {
	records     []domain.MediaRecord
	err         error
	calls       int
	invalidated []domain.QueryKey
	cleared     bool
}

func (s *stubAggregator) Superset(_ context.Context, subject string, collection *string) (domain.SearchEntry, bool, error) {
	s.calls++
	if s.err != nil {
		return domain.SearchEntry{}, false, s.err
	}
	return domain.SearchEntry{Key: domain.NewQueryKey(subject, collection), Records: s.records}, s.calls > 1, nil
}

func (s *stubAggregator) Invalidate(_ context.Context, subject string, collection *string) error {
	s.invalidated = append(s.invalidated, domain.NewQueryKey(subject, collection))
	return nil
}

func (s *stubAggregator) Clear(context.Context) error {
	s.cleared = true
	return nil
}

func ptr(s string) *string { return &s }

func manyRecords(n int) []domain.MediaRecord {
	out := make([]domain.MediaRecord, n)
	for i := range out {
		out[i] = providertest.Record("fake", string(rune('a'+i%26))+string(rune('a'+i/26)), n-i)
	}
	return out
}

func TestSearch_Validation(t *testing.T) {
	svc := NewSearchService(&stubAggregator{}, nil, testLogger())
	ctx := context.Background()

	tests := []struct {
		name     string
		subject  string
		page     int
		pageSize int
	}{
		{"empty subject", "", 1, 10},
		{"blank subject", "   ", 1, 10},
		{"page zero", "anya", 0, 10},
		{"page size zero", "anya", 1, 0},
		{"page size too big", "anya", 1, 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(ctx, tt.subject, nil, tt.page, tt.pageSize)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestSearch_Paginates(t *testing.T) {
	agg := &stubAggregator{records: manyRecords(45)}
	svc := NewSearchService(agg, nil, testLogger())
	ctx := context.Background()

	res, err := svc.Search(ctx, "anya", ptr("spy x family"), 1, 10)
	require.NoError(t, err)
	assert.Len(t, res.Records, 10)
	assert.Equal(t, 5, res.TotalPages)
	assert.Equal(t, 45, res.Total)
	assert.Equal(t, domain.QueryKey("anya_spy_x_family"), res.Key)
	assert.False(t, res.Cached)

	res, err = svc.Search(ctx, "anya", ptr("spy x family"), 5, 10)
	require.NoError(t, err)
	assert.Len(t, res.Records, 5)
	assert.True(t, res.Cached)

	// Past the end clamps to the last page.
	res, err = svc.Search(ctx, "anya", ptr("spy x family"), 99, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Page)
	assert.Len(t, res.Records, 5)
}

func TestSearch_EmptyResult(t *testing.T) {
	svc := NewSearchService(&stubAggregator{}, nil, testLogger())

	res, err := svc.Search(context.Background(), "nobody", nil, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 0, res.Total)
}

func TestSearch_BlankCollectionIsAbsent(t *testing.T) {
	svc := NewSearchService(&stubAggregator{}, nil, testLogger())

	res, err := svc.Search(context.Background(), "anya", ptr("  "), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.QueryKey("anya"), res.Key)
}

func TestSearch_PropagatesContextError(t *testing.T) {
	svc := NewSearchService(&stubAggregator{err: context.Canceled}, nil, testLogger())

	_, err := svc.Search(context.Background(), "anya", nil, 1, 10)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInvalidateAndClear(t *testing.T) {
	agg := &stubAggregator{}
	svc := NewSearchService(agg, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Invalidate(ctx, "Anya", ptr("Spy x Family")))
	assert.Equal(t, []domain.QueryKey{"anya_spy_x_family"}, agg.invalidated)

	assert.ErrorIs(t, svc.Invalidate(ctx, "", nil), apperrors.ErrValidation)

	require.NoError(t, svc.Clear(ctx))
	assert.True(t, agg.cleared)
}

func TestResolve(t *testing.T) {
	resolver := tags.NewResolver(nil, tags.Config{DisableProbe: true}, testLogger())
	svc := NewSearchService(&stubAggregator{}, resolver, testLogger())

	res, err := svc.Resolve(context.Background(), "Anya", ptr("Spy x Family"))
	require.NoError(t, err)
	assert.Equal(t, "anya", res.Subject)
	assert.Equal(t, "spy_x_family", res.CollectionTag)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, "anya_(spy_x_family)", res.Candidates[0])
}

func TestSearch_EndToEnd(t *testing.T) {
	p := providertest.New("danbooru").FillPages("anya_(spy_x_family)", 45, 3)
	registry, err := provider.NewRegistry(p)
	require.NoError(t, err)

	c, err := cache.New(cache.Config{}, nil, nil, testLogger())
	require.NoError(t, err)
	defer c.Close()

	resolver := tags.NewResolver(nil, tags.Config{DisableProbe: true}, testLogger())
	agg, err := aggregate.New(aggregate.Options{
		Resolver:  resolver,
		Providers: registry,
		Fetcher:   fetch.New(fetch.Config{RetryStep: time.Millisecond}, nil, testLogger()),
		Cache:     c,
		Logger:    testLogger(),
	})
	require.NoError(t, err)

	svc := NewSearchService(agg, resolver, testLogger())
	ctx := context.Background()

	seen := map[string]bool{}
	for page := 1; page <= 5; page++ {
		res, err := svc.Search(ctx, "anya", ptr("spy x family"), page, 10)
		require.NoError(t, err)
		assert.Equal(t, 5, res.TotalPages)
		assert.Equal(t, page > 1, res.Cached)
		for _, r := range res.Records {
			assert.False(t, seen[r.ID], "duplicate %s", r.ID)
			seen[r.ID] = true
		}
	}
	assert.Len(t, seen, 45)
}
