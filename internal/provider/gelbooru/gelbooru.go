// Package gelbooru adapts the Gelbooru DAPI post index.
package gelbooru

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
	Name = "gelbooru"

	// DefaultBaseURL is the public Gelbooru instance.
	DefaultBaseURL = "https://gelbooru.com"

	defaultDenyTerms = -1

	safeRating = "general"
	ratingTerm = "rating:general"

	maxLimit = 100
)

// Adapter fetches posts from Gelbooru.
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
// Pages are 1-based; the API's pid is 0-based.
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

// AssetHosts returns the hosts Gelbooru serves images from.
func (a *Adapter) AssetHosts() []string {
	return []string{"img3.gelbooru.com", "img2.gelbooru.com", "img4.gelbooru.com", "video-cdn3.gelbooru.com", a.BaseHost()}
}

func (a *Adapter) search(ctx context.Context, tag string, page, limit int) ([]provider.Post, error) {
	if limit < 1 || limit > maxLimit {
		limit = maxLimit
	}
	if page < 1 {
		page = 1
	}

	query := url.Values{}
	query.Set("page", "dapi")
	query.Set("s", "post")
	query.Set("q", "index")
	query.Set("json", "1")
	query.Set("tags", a.SearchTerms(tag, ratingTerm))
	query.Set("pid", strconv.Itoa(page-1))
	query.Set("limit", strconv.Itoa(limit))

	body, err := a.Client().Get(ctx, Name, a.Endpoint("/index.php", query))
	if err != nil {
		return nil, err
	}

	var resp rawResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformed, err)
	}

	posts := make([]provider.Post, 0, len(resp.Post))
	for _, r := range resp.Post {
		posts = append(posts, r.toPost())
	}
	return posts, nil
}

// rawResponse wraps the post list. "post" is absent when nothing matched.
type rawResponse struct {
	Post []rawPost `json:"post"`
}

type rawPost struct {
	ID         provider.FlexString `json:"id"`
	Rating     string              `json:"rating"`
	FileURL    string              `json:"file_url"`
	SampleURL  string              `json:"sample_url"`
	PreviewURL string              `json:"preview_url"`
	Tags       string              `json:"tags"`
	Score      provider.FlexInt    `json:"score"`
	Width      provider.FlexInt    `json:"width"`
	Height     provider.FlexInt    `json:"height"`
}

func (r rawPost) toPost() provider.Post {
	tags := provider.SplitTags(r.Tags)
	preview := r.PreviewURL
	if preview == "" {
		preview = r.SampleURL
	}
	return provider.Post{
		Params: domain.RecordParams{
			NativeID:     r.ID.String(),
			CanonicalURL: r.FileURL,
			PreviewURL:   preview,
			Tags:         tags,
			Score:        int(r.Score),
			Width:        int(r.Width),
			Height:       int(r.Height),
		},
		AllTags: tags,
		Safe:    r.Rating == safeRating,
	}
}
