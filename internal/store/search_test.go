package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/artfetch/internal/domain"
)

// setupTestStore creates a temporary store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "artfetch-store-test-*")
	require.NoError(t, err)

	s, err := New(tmpDir, nil)
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return s, cleanup
}

func testEntry(key domain.QueryKey, ttl time.Duration) domain.SearchEntry {
	now := time.Now()
	return domain.SearchEntry{
		Key: key,
		Records: []domain.MediaRecord{
			domain.NewMediaRecord(domain.RecordParams{
				Source:       "danbooru",
				NativeID:     "1",
				CanonicalURL: "https://cdn.donmai.us/original/1.jpg",
				Tags:         []string{"anya_(spy_x_family)", "smile"},
				Score:        42,
			}),
		},
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSearch_SaveAndLoad(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	key := domain.QueryKey("anya_spy_x_family")

	require.NoError(t, s.SaveSearch(ctx, testEntry(key, time.Hour)))

	got, found, err := s.LoadSearch(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, key, got.Key)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "danbooru:1", got.Records[0].ID)
	assert.Equal(t, []string{"anya_(spy_x_family)", "smile"}, got.Records[0].Tags)
}

func TestSearch_LoadMissing(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, found, err := s.LoadSearch(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSearch_ExpiredEntryNotStored(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	entry := testEntry("anya", time.Hour)
	entry.ExpiresAt = time.Now().Add(-time.Second)

	require.NoError(t, s.SaveSearch(ctx, entry))

	_, found, err := s.LoadSearch(ctx, "anya")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSearch_Delete(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.SaveSearch(ctx, testEntry("anya", time.Hour)))
	require.NoError(t, s.DeleteSearch(ctx, "anya"))

	_, found, err := s.LoadSearch(ctx, "anya")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteSearch(ctx, "anya"))
}

func TestSearch_DeleteAll(t *testing.T) {
	s, err := NewInMemory(nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveSearch(ctx, testEntry("anya", time.Hour)))
	require.NoError(t, s.SaveSearch(ctx, testEntry("yor", time.Hour)))

	require.NoError(t, s.DeleteAllSearches(ctx))

	for _, key := range []domain.QueryKey{"anya", "yor"} {
		_, found, err := s.LoadSearch(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.LoadSearch(ctx, "anya")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.SaveSearch(ctx, testEntry("anya", time.Hour)), context.Canceled)
}
