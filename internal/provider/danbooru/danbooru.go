// Package danbooru adapts the Danbooru posts API.
package danbooru

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"

	"github.com/listenupapp/artfetch/internal/domain"
	"github.com/listenupapp/artfetch/internal/provider"
)

const (
	// Name is the provider name used for record IDs and metrics.
	Name = "danbooru"

	// DefaultBaseURL is the public Danbooru instance.
	DefaultBaseURL = "https://danbooru.donmai.us"

	// maxSearchTags is the anonymous tag cap. The rating metatag does
	// not count against it.
	maxSearchTags = 2

	// The searched tag takes one slot; deny terms fill the rest.
	defaultDenyTerms = maxSearchTags - 1

	safeRating = "g"
	ratingTerm = "rating:g"

	maxLimit = 200
)

// Adapter fetches posts from Danbooru.
type Adapter struct {
	provider.Base
}

// New creates an adapter. A missing base URL is a configuration error.
func New(opts provider.Options) (*Adapter, error) {
	base, err := provider.NewBase(Name, opts, defaultDenyTerms)
	if err != nil {
		return nil, err
	}
	return &Adapter{Base: base}, nil
}

// FetchPage returns the safe records on one page of results for tag.
func (a *Adapter) FetchPage(ctx context.Context, tag string, page, limit int) ([]domain.MediaRecord, error) {
	posts, err := a.search(ctx, tag, page, limit)
	if err != nil {
		return nil, provider.WrapError("fetch", Name, tag, page, err)
	}
	return a.Screen(posts), nil
}

// ProbeTags counts tags on safe posts matching a wildcard pattern.
func (a *Adapter) ProbeTags(ctx context.Context, pattern string, limit int) (map[string]int, error) {
	posts, err := a.search(ctx, pattern, 1, limit)
	if err != nil {
		return nil, provider.WrapError("probe", Name, pattern, 0, err)
	}
	return a.CountTags(posts), nil
}

// AssetHosts returns the hosts Danbooru serves images from.
func (a *Adapter) AssetHosts() []string {
	return []string{"cdn.donmai.us", "danbooru.donmai.us", a.BaseHost()}
}

func (a *Adapter) search(ctx context.Context, tag string, page, limit int) ([]provider.Post, error) {
	if limit < 1 || limit > maxLimit {
		limit = maxLimit
	}
	if page < 1 {
		page = 1
	}

	query := url.Values{}
	query.Set("tags", a.SearchTerms(tag, ratingTerm))
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	body, err := a.Client().Get(ctx, Name, a.Endpoint("/posts.json", query))
	if err != nil {
		return nil, err
	}

	var raw []rawPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformed, err)
	}

	posts := make([]provider.Post, 0, len(raw))
	for _, r := range raw {
		posts = append(posts, r.toPost())
	}
	return posts, nil
}

// rawPost is the subset of a Danbooru post this adapter reads.
type rawPost struct {
	ID             provider.FlexString `json:"id"`
	Rating         string              `json:"rating"`
	FileURL        string              `json:"file_url"`
	LargeFileURL   string              `json:"large_file_url"`
	PreviewFileURL string              `json:"preview_file_url"`
	TagString      string              `json:"tag_string"`
	Score          provider.FlexInt    `json:"score"`
	ImageWidth     provider.FlexInt    `json:"image_width"`
	ImageHeight    provider.FlexInt    `json:"image_height"`
}

func (r rawPost) toPost() provider.Post {
	tags := provider.SplitTags(r.TagString)
	return provider.Post{
		Params: domain.RecordParams{
			NativeID:     r.ID.String(),
			CanonicalURL: r.FileURL,
			PreviewURL:   firstNonEmpty(r.PreviewFileURL, r.LargeFileURL),
			Tags:         tags,
			Score:        int(r.Score),
			Width:        int(r.ImageWidth),
			Height:       int(r.ImageHeight),
		},
		AllTags: tags,
		Safe:    r.Rating == safeRating,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
