package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/artfetch/internal/provider"
	"github.com/listenupapp/artfetch/internal/provider/providertest"
)

func newTestFetcher(cfg Config) *Fetcher {
	if cfg.RetryStep == 0 {
		cfg.RetryStep = time.Millisecond
	}
	return New(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchAllPages_EarlyStop(t *testing.T) {
	p := providertest.New("fake").FillPages("anya", 9, 3) // pages 1-3

	f := newTestFetcher(Config{})
	records := f.FetchAllPages(context.Background(), p, "anya", 20)

	assert.Len(t, records, 9)
	assert.LessOrEqual(t, p.MaxPage("anya"), 6, "must not walk past two empty pages")
	assert.Len(t, p.Calls(), 6)
}

func TestFetchAllPages_StreakResetsOnProductivePage(t *testing.T) {
	p := providertest.New("fake")
	p.SetPage("anya", 1, providertest.Record("fake", "1", 1))
	p.SetPage("anya", 3, providertest.Record("fake", "3", 1))
	p.SetPage("anya", 5, providertest.Record("fake", "5", 1))

	f := newTestFetcher(Config{})
	records := f.FetchAllPages(context.Background(), p, "anya", 20)

	assert.Len(t, records, 3)
	assert.Equal(t, 9, p.MaxPage("anya"), "pages 6 and 7 are empty, stop after the batch holding them")
}

func TestFetchAllPages_TwoEmptyPagesMidStreamStopWalk(t *testing.T) {
	p := providertest.New("fake")
	p.SetPage("anya", 1, providertest.Record("fake", "1", 1))
	p.SetPage("anya", 4, providertest.Record("fake", "4", 1))

	f := newTestFetcher(Config{})
	records := f.FetchAllPages(context.Background(), p, "anya", 20)

	require.Len(t, records, 1)
	assert.Equal(t, "fake:1", records[0].ID)
	assert.Equal(t, 3, p.MaxPage("anya"), "pages 2 and 3 end the walk after the first batch")
}

func TestFetchAllPages_RespectsMaxPages(t *testing.T) {
	p := providertest.New("fake").FillPages("anya", 60, 3) // pages 1-20

	f := newTestFetcher(Config{})
	records := f.FetchAllPages(context.Background(), p, "anya", 4)

	assert.Len(t, records, 12)
	assert.Equal(t, 4, p.MaxPage("anya"))
}

func TestFetchAllPages_PageOrderAndLocalDedup(t *testing.T) {
	p := providertest.New("fake")
	a := providertest.Record("fake", "a", 1)
	b := providertest.Record("fake", "b", 1)
	c := providertest.Record("fake", "c", 1)
	p.SetPage("anya", 1, a, b)
	p.SetPage("anya", 2, b, c) // b repeats across pages
	p.SetPage("anya", 3, a)

	f := newTestFetcher(Config{})
	records := f.FetchAllPages(context.Background(), p, "anya", 20)

	require.Len(t, records, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{records[0].ID, records[1].ID, records[2].ID})
}

func TestFetchAllPages_RetriesTransientErrors(t *testing.T) {
	p := providertest.New("fake").FillPages("anya", 3, 3)
	p.FailNext("anya", 1, provider.ErrServer, provider.ErrRateLimited)

	f := newTestFetcher(Config{})
	records := f.FetchAllPages(context.Background(), p, "anya", 3)

	assert.Len(t, records, 3, "third attempt succeeds")

	page1 := 0
	for _, c := range p.Calls() {
		if c.Page == 1 {
			page1++
		}
	}
	assert.Equal(t, 3, page1)
}

func TestFetchAllPages_GivesUpAfterMaxRetries(t *testing.T) {
	p := providertest.New("fake").FillPages("anya", 6, 3) // pages 1-2
	p.FailNext("anya", 1, provider.ErrServer, provider.ErrServer, provider.ErrServer)

	f := newTestFetcher(Config{})
	records := f.FetchAllPages(context.Background(), p, "anya", 3)

	assert.Len(t, records, 3, "page 1 absorbed as empty, page 2 still served")
}

func TestFetchAllPages_PermanentErrorNotRetried(t *testing.T) {
	p := providertest.New("fake").FillPages("anya", 3, 3)
	p.FailNext("anya", 1, provider.WrapError("fetch", "fake", "anya", 1, provider.ErrBadRequest))

	f := newTestFetcher(Config{})
	records := f.FetchAllPages(context.Background(), p, "anya", 1)

	assert.Empty(t, records)
	assert.Len(t, p.Calls(), 1)
}

func TestFetchAllPages_BatchesRunConcurrently(t *testing.T) {
	p := providertest.New("fake").WithDelay(100 * time.Millisecond).FillPages("anya", 9, 3)

	f := newTestFetcher(Config{})
	start := time.Now()
	f.FetchAllPages(context.Background(), p, "anya", 3)

	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestFetchAllPages_ContextCancelled(t *testing.T) {
	p := providertest.New("fake").FillPages("anya", 60, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(Config{BatchDelay: time.Second})
	records := f.FetchAllPages(ctx, p, "anya", 20)

	assert.LessOrEqual(t, len(records), 9)
	assert.LessOrEqual(t, p.MaxPage("anya"), 3)
}

func TestLinearBackOff(t *testing.T) {
	b := &LinearBackOff{Step: 500 * time.Millisecond}

	var got []time.Duration
	for range 3 {
		got = append(got, b.NextBackOff())
	}
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 1500 * time.Millisecond}, got)

	b.Reset()
	assert.Equal(t, 500*time.Millisecond, b.NextBackOff())
}

func ExampleLinearBackOff() {
	b := &LinearBackOff{Step: 500 * time.Millisecond}
	fmt.Println(b.NextBackOff(), b.NextBackOff())
	// Output: 500ms 1s
}
