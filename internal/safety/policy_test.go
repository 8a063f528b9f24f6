package safety

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/artfetch/internal/domain"
)

func candidate(id string, tags ...string) Candidate {
	return Candidate{
		Record: domain.NewMediaRecord(domain.RecordParams{
			Source:       "test",
			NativeID:     id,
			CanonicalURL: "https://img.example/" + id + ".jpg",
			Tags:         tags,
		}),
		AllTags: tags,
	}
}

func TestDefaultPolicy_Size(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultPolicy().Size(), 100)
}

func TestPolicy_Filter(t *testing.T) {
	p := NewPolicy([]string{"Swimsuit", " bondage ", ""}, nil)

	kept, dropped := p.Filter([]Candidate{
		candidate("1", "anya_(spy_x_family)", "smile"),
		candidate("2", "anya_(spy_x_family)", "swimsuit"),
		candidate("3", "BONDAGE"),
		candidate("4", "peanuts"),
	})

	require.Len(t, kept, 2)
	assert.Equal(t, "test:1", kept[0].ID)
	assert.Equal(t, "test:4", kept[1].ID)
	assert.Equal(t, 2, dropped)
}

func TestPolicy_FilterChecksFullTagList(t *testing.T) {
	p := DefaultPolicy()

	tags := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "nude"}
	c := candidate("1", tags...)
	require.NotContains(t, c.Record.Tags, "nude", "record tags are truncated")

	kept, dropped := p.Filter([]Candidate{c})
	assert.Empty(t, kept)
	assert.Equal(t, 1, dropped)
}

func TestPolicy_DenyQueryTerms(t *testing.T) {
	p := NewPolicy(nil, []string{"nude", "Nude", "bikini", "loli"})

	assert.Equal(t, []string{"-nude", "-bikini", "-loli"}, p.DenyQueryTerms(-1))
	assert.Equal(t, []string{"-nude"}, p.DenyQueryTerms(1))
	assert.Empty(t, p.DenyQueryTerms(0))
}

func TestGuard_Swap(t *testing.T) {
	g := NewGuard(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Equal(t, DefaultPolicy().Size(), g.Policy().Size())

	g.Swap(nil)
	assert.Equal(t, DefaultPolicy().Size(), g.Policy().Size(), "nil swap is ignored")

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_, _ = g.Policy().BlockedTag([]string{"kiss"})
		})
	}
	g.Swap(NewPolicy([]string{"kiss"}, nil))
	wg.Wait()

	_, blocked := g.Policy().BlockedTag([]string{"kiss"})
	assert.True(t, blocked)
	assert.Equal(t, 1, g.Policy().Size())
}
