// Package domain contains the core entities shared by the aggregation engine.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// MaxRecordTags bounds the number of provider tags carried on a record.
const MaxRecordTags = 10

// MediaRecord is a single asset returned by a content provider.
// Records are values: once built by NewMediaRecord they are never modified.
type MediaRecord struct {
	ID           string   `json:"id"`
	CanonicalURL string   `json:"canonical_url"`
	PreviewURL   string   `json:"preview_url"`
	Source       string   `json:"source"`
	Tags         []string `json:"tags"`
	Score        int      `json:"score"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
}

// RecordParams carries the provider-native fields used to build a MediaRecord.
type RecordParams struct {
	Source       string
	NativeID     string
	CanonicalURL string
	PreviewURL   string
	Tags         []string
	Score        int
	Width        int
	Height       int
}

// NewMediaRecord builds a record from provider fields.
// The ID is prefixed with the source, the preview falls back to the canonical
// URL and the tag list is copied and truncated to MaxRecordTags.
func NewMediaRecord(p RecordParams) MediaRecord {
	preview := p.PreviewURL
	if preview == "" {
		preview = p.CanonicalURL
	}

	tags := p.Tags
	if len(tags) > MaxRecordTags {
		tags = tags[:MaxRecordTags]
	}

	width, height := p.Width, p.Height
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	return MediaRecord{
		ID:           p.Source + ":" + p.NativeID,
		CanonicalURL: p.CanonicalURL,
		PreviewURL:   preview,
		Source:       p.Source,
		Tags:         slices.Clone(tags),
		Score:        p.Score,
		Width:        width,
		Height:       height,
	}
}

// DedupHash returns the content identity of the record: a hex SHA-256 of its canonical URL.
func (r MediaRecord) DedupHash() string {
	return HashURL(r.CanonicalURL)
}

// HashURL returns the hex SHA-256 digest of an asset URL.
func HashURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])
}

// DedupIndex tracks content hashes seen during one aggregation run.
// It is not safe for concurrent use; only the merging goroutine writes to it.
type DedupIndex struct {
	seen map[string]struct{}
}

// NewDedupIndex creates an empty index.
func NewDedupIndex() *DedupIndex {
	return &DedupIndex{seen: make(map[string]struct{})}
}

// Add marks the record as seen. Returns false if a record with the same
// canonical URL was already added.
func (d *DedupIndex) Add(r MediaRecord) bool {
	h := r.DedupHash()
	if _, ok := d.seen[h]; ok {
		return false
	}
	d.seen[h] = struct{}{}
	return true
}

// Len returns the number of distinct records seen.
func (d *DedupIndex) Len() int {
	return len(d.seen)
}
