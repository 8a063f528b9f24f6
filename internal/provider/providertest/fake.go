// Package providertest provides an in-memory ContentProvider for tests.
package providertest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/listenupapp/artfetch/internal/domain"
)

// Call records one FetchPage invocation.
type Call struct {
	Tag  string
	Page int
}

// Fake serves canned pages per tag. Unknown pages are empty.
type Fake struct {
	name  string
	delay time.Duration

	mu     sync.Mutex
	pages  map[string]map[int][]domain.MediaRecord
	errs   map[Call][]error
	calls  []Call
	probes map[string]int
}

// New creates a fake provider.
func New(name string) *Fake {
	return &Fake{
		name:  name,
		pages: make(map[string]map[int][]domain.MediaRecord),
		errs:  make(map[Call][]error),
	}
}

// Name implements provider.ContentProvider.
func (f *Fake) Name() string {
	return f.name
}

// WithDelay makes every fetch take d.
func (f *Fake) WithDelay(d time.Duration) *Fake {
	f.delay = d
	return f
}

// SetPage sets the records returned for tag on page.
func (f *Fake) SetPage(tag string, page int, records ...domain.MediaRecord) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pages[tag] == nil {
		f.pages[tag] = make(map[int][]domain.MediaRecord)
	}
	f.pages[tag][page] = records
	return f
}

// FillPages spreads n generated records over pages perPage at a time,
// starting at page 1.
func (f *Fake) FillPages(tag string, n, perPage int) *Fake {
	for i := 0; i < n; i += perPage {
		var recs []domain.MediaRecord
		for j := i; j < min(i+perPage, n); j++ {
			recs = append(recs, Record(f.name, fmt.Sprintf("%s-%d", tag, j), n-j))
		}
		f.SetPage(tag, i/perPage+1, recs...)
	}
	return f
}

// FailNext queues errors returned, in order, by the next fetches of
// tag/page before the canned page is served.
func (f *Fake) FailNext(tag string, page int, errs ...error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := Call{Tag: tag, Page: page}
	f.errs[key] = append(f.errs[key], errs...)
	return f
}

// SetProbe makes the fake implement probing with the given counts.
func (f *Fake) SetProbe(counts map[string]int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = counts
	return f
}

// FetchPage implements provider.ContentProvider.
func (f *Fake) FetchPage(ctx context.Context, tag string, page, _ int) ([]domain.MediaRecord, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := Call{Tag: tag, Page: page}
	f.calls = append(f.calls, key)

	if queued := f.errs[key]; len(queued) > 0 {
		f.errs[key] = queued[1:]
		return nil, queued[0]
	}
	return slices.Clone(f.pages[tag][page]), nil
}

// ProbeTags returns the counts set with SetProbe.
func (f *Fake) ProbeTags(_ context.Context, _ string, _ int) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes, nil
}

// Calls returns every fetch made so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// MaxPage returns the highest page requested for tag.
func (f *Fake) MaxPage(tag string) int {
	maxPage := 0
	for _, c := range f.Calls() {
		if c.Tag == tag && c.Page > maxPage {
			maxPage = c.Page
		}
	}
	return maxPage
}

// Tags returns the distinct tags requested, in first-request order.
func (f *Fake) Tags() []string {
	var tags []string
	for _, c := range f.Calls() {
		if !slices.Contains(tags, c.Tag) {
			tags = append(tags, c.Tag)
		}
	}
	return tags
}

// Reset clears the recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Record builds a record with a unique canonical URL derived from id.
func Record(source, id string, score int, tags ...string) domain.MediaRecord {
	return domain.NewMediaRecord(domain.RecordParams{
		Source:       source,
		NativeID:     id,
		CanonicalURL: "https://img.example.com/" + id + ".jpg",
		Tags:         tags,
		Score:        score,
	})
}
