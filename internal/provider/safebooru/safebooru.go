// Package safebooru adapts the Safebooru DAPI post index.
//
// Safebooru only hosts content it considers safe, but older posts carry
// the "safe" rating and newer ones "general"; both are accepted and the
// block-list still applies.
package safebooru

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
	Name = "safebooru"

	// DefaultBaseURL is the public Safebooru instance.
	DefaultBaseURL = "https://safebooru.org"

	defaultDenyTerms = -1

	maxLimit = 100
)

// The rating vocabulary changed over time, so exclude the unsafe tiers
// instead of naming the safe one.
var ratingTerms = []string{"-rating:questionable", "-rating:explicit"}

// Adapter fetches posts from Safebooru.
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

// AssetHosts returns the hosts Safebooru serves images from.
func (a *Adapter) AssetHosts() []string {
	return []string{"safebooru.org", a.BaseHost()}
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
	query.Set("tags", a.SearchTerms(tag, ratingTerms...))
	query.Set("pid", strconv.Itoa(page-1))
	query.Set("limit", strconv.Itoa(limit))

	body, err := a.Client().Get(ctx, Name, a.Endpoint("/index.php", query))
	if err != nil {
		return nil, err
	}

	// An empty result is an empty body rather than "[]".
	if len(body) == 0 {
		return nil, nil
	}

	var raw []rawPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformed, err)
	}

	posts := make([]provider.Post, 0, len(raw))
	for _, r := range raw {
		posts = append(posts, a.toPost(r))
	}
	return posts, nil
}

type rawPost struct {
	ID         provider.FlexString `json:"id"`
	Rating     string              `json:"rating"`
	FileURL    string              `json:"file_url"`
	PreviewURL string              `json:"preview_url"`
	Directory  provider.FlexString `json:"directory"`
	Image      string              `json:"image"`
	Tags       string              `json:"tags"`
	Score      provider.FlexInt    `json:"score"`
	Width      provider.FlexInt    `json:"width"`
	Height     provider.FlexInt    `json:"height"`
}

func (a *Adapter) toPost(r rawPost) provider.Post {
	canonical := r.FileURL
	if canonical == "" && r.Directory != "" && r.Image != "" {
		canonical = a.Endpoint("/images/"+r.Directory.String()+"/"+r.Image, nil)
	}

	tags := provider.SplitTags(r.Tags)
	return provider.Post{
		Params: domain.RecordParams{
			NativeID:     r.ID.String(),
			CanonicalURL: canonical,
			PreviewURL:   r.PreviewURL,
			Tags:         tags,
			Score:        int(r.Score),
			Width:        int(r.Width),
			Height:       int(r.Height),
		},
		AllTags: tags,
		Safe:    r.Rating == "safe" || r.Rating == "general",
	}
}
