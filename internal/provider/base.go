package provider

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/listenupapp/artfetch/internal/domain"
	apperrors "github.com/listenupapp/artfetch/internal/errors"
	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/safety"
)

// Options configures an adapter.
type Options struct {
	BaseURL string
	Client  *HTTPClient
	Guard   *safety.Guard
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// MaxDenyTerms caps the negated deny terms sent with each query.
	// Zero uses the adapter default, negative sends none.
	MaxDenyTerms int
}

// Post is a parsed provider post before screening.
type Post struct {
	Params domain.RecordParams
	// AllTags is the provider's complete tag list for the post.
	AllTags []string
	// Safe reports whether the native rating is the provider's most
	// restrictive tier.
	Safe bool
}

// Base carries what every adapter shares: endpoint, client and the
// safety screen. Concrete adapters embed it.
type Base struct {
	name         string
	baseURL      *url.URL
	client       *HTTPClient
	guard        *safety.Guard
	metrics      *metrics.Metrics
	logger       *slog.Logger
	maxDenyTerms int
}

// NewBase validates opts and builds the shared adapter state.
// defaultDenyTerms is used when opts.MaxDenyTerms is zero; a negative
// default sends every deny term.
func NewBase(name string, opts Options, defaultDenyTerms int) (Base, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return Base{}, apperrors.Wrapf(ErrMissingBaseURL, apperrors.CodeConfiguration, "provider %s", name)
	}
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Base{}, apperrors.Configurationf("provider %s: invalid base URL %q", name, opts.BaseURL)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Client == nil {
		opts.Client = NewHTTPClient(ClientConfig{}, opts.Logger)
	}
	if opts.Guard == nil {
		opts.Guard = safety.NewGuard(nil, opts.Logger)
	}

	deny := defaultDenyTerms
	switch {
	case opts.MaxDenyTerms > 0:
		deny = opts.MaxDenyTerms
	case opts.MaxDenyTerms < 0:
		deny = 0
	}

	return Base{
		name:         name,
		baseURL:      u,
		client:       opts.Client,
		guard:        opts.Guard,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With("provider", name),
		maxDenyTerms: deny,
	}, nil
}

// Name returns the provider name.
func (b *Base) Name() string {
	return b.name
}

// Client returns the shared HTTP client.
func (b *Base) Client() *HTTPClient {
	return b.client
}

// Logger returns the provider-scoped logger.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// Endpoint resolves path against the base URL with the given query.
func (b *Base) Endpoint(path string, query url.Values) string {
	u := *b.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// BaseHost returns the host of the configured base URL.
func (b *Base) BaseHost() string {
	return b.baseURL.Hostname()
}

// SearchTerms joins the tag, the rating terms and the negated deny terms
// into a provider search string.
func (b *Base) SearchTerms(tag string, ratingTerms ...string) string {
	terms := make([]string, 0, 1+len(ratingTerms)+max(b.maxDenyTerms, 0))
	terms = append(terms, tag)
	terms = append(terms, ratingTerms...)
	terms = append(terms, b.guard.Policy().DenyQueryTerms(b.maxDenyTerms)...)
	return strings.Join(terms, " ")
}

// Screen drops posts without a full-resolution URL, posts outside the
// safe rating tier and posts whose tags hit the block-list. The
// block-list check always runs, whatever the rating says.
func (b *Base) Screen(posts []Post) []domain.MediaRecord {
	candidates := make([]safety.Candidate, 0, len(posts))
	var noURL, unsafe int

	for _, p := range posts {
		if p.Params.CanonicalURL == "" {
			noURL++
			continue
		}
		if !p.Safe {
			unsafe++
			continue
		}
		p.Params.Source = b.name
		candidates = append(candidates, safety.Candidate{
			Record:  domain.NewMediaRecord(p.Params),
			AllTags: p.AllTags,
		})
	}

	kept, blocked := b.guard.Policy().Filter(candidates)

	b.metrics.RecordsDropped(b.name, metrics.DropNoURL, noURL)
	b.metrics.RecordsDropped(b.name, metrics.DropRating, unsafe)
	b.metrics.RecordsDropped(b.name, metrics.DropBlocklist, blocked)

	if dropped := noURL + unsafe + blocked; dropped > 0 {
		b.logger.Debug("screened posts",
			"received", len(posts),
			"kept", len(kept),
			"no_url", noURL,
			"unsafe_rating", unsafe,
			"blocklisted", blocked,
		)
	}
	return kept
}

// CountTags tallies tags across screened posts. Posts that Screen would
// drop are not counted.
func (b *Base) CountTags(posts []Post) map[string]int {
	counts := make(map[string]int)
	policy := b.guard.Policy()
	for _, p := range posts {
		if p.Params.CanonicalURL == "" || !p.Safe {
			continue
		}
		if _, blocked := policy.BlockedTag(p.AllTags); blocked {
			continue
		}
		for _, t := range p.AllTags {
			counts[t]++
		}
	}
	return counts
}

// SplitTags splits a space-separated provider tag string.
func SplitTags(s string) []string {
	return strings.Fields(s)
}
