package domain

import (
	"strings"
	"time"
	"unicode"
)

// QueryKey is the normalized cache key for a (subject, collection) pair.
type QueryKey string

// NewQueryKey builds the cache key: both parts lowercased with runs of
// whitespace collapsed to underscores, joined by an underscore when a
// collection is present.
func NewQueryKey(subject string, collection *string) QueryKey {
	key := normalizeKeyPart(subject)
	if collection != nil {
		if c := normalizeKeyPart(*collection); c != "" {
			key += "_" + c
		}
	}
	return QueryKey(key)
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '_'
	}), "_")
}

// String implements fmt.Stringer.
func (k QueryKey) String() string {
	return string(k)
}

// SearchEntry is a cached, fully ranked superset for one query key.
// Entries are read-only once stored.
type SearchEntry struct {
	Key       QueryKey      `json:"key"`
	Records   []MediaRecord `json:"records"`
	FetchedAt time.Time     `json:"fetched_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e SearchEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Page is one slice of a cached superset.
type Page struct {
	Records    []MediaRecord `json:"records"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Total      int           `json:"total"`
}

// Paginate slices records into the requested page.
// totalPages is at least 1 and page is clamped into [1, totalPages].
func Paginate(records []MediaRecord, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = 1
	}

	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := min((page-1)*pageSize, total)
	end := min(page*pageSize, total)

	out := make([]MediaRecord, end-start)
	copy(out, records[start:end])

	return Page{
		Records:    out,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
	}
}
