package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/artfetch/internal/domain"
	"github.com/listenupapp/artfetch/internal/service"
	"github.com/listenupapp/artfetch/internal/tags"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search media",
		Description: "Returns one page of deduplicated, safety-filtered media for a subject",
		Tags:        []string{"Search"},
		Middlewares: huma.Middlewares{s.rateLimit},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID:   "invalidateSearch",
		Method:        http.MethodDelete,
		Path:          "/api/v1/search/cache",
		Summary:       "Invalidate cached results",
		Description:   "Drops the cached results for one query, or every query when subject is omitted",
		Tags:          []string{"Search"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleInvalidateSearch)
}

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "resolveTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/resolve",
		Summary:     "Resolve tag candidates",
		Description: "Shows the provider tags a query would be searched under, best first",
		Tags:        []string{"Search"},
		Middlewares: huma.Middlewares{s.rateLimit},
	}, s.handleResolveTags)
}

// === DTOs ===

// SearchInput contains parameters for a search.
type SearchInput struct {
	Subject    string `query:"subject" doc:"Character or subject name"`
	Collection string `query:"collection" doc:"Series or franchise the subject belongs to"`
	Page       int    `query:"page" default:"1" doc:"1-based page number, clamped to the last page"`
	PageSize   int    `query:"page_size" default:"20" doc:"Records per page (1-100)"`
}

// RecordResponse is one media record.
type RecordResponse struct {
	ID           string   `json:"id" doc:"Source-prefixed record ID"`
	Source       string   `json:"source" doc:"Provider that supplied the record"`
	CanonicalURL string   `json:"canonical_url" doc:"Full-size asset URL"`
	PreviewURL   string   `json:"preview_url" doc:"Preview asset URL"`
	Tags         []string `json:"tags" doc:"Provider tags (truncated)"`
	Score        int      `json:"score" doc:"Provider score"`
	Width        int      `json:"width,omitempty" doc:"Width in pixels"`
	Height       int      `json:"height,omitempty" doc:"Height in pixels"`
}

// SearchResponse is one page of results.
type SearchResponse struct {
	Key        string           `json:"key" doc:"Normalized cache key for the query"`
	Records    []RecordResponse `json:"records" doc:"Records on this page"`
	Page       int              `json:"page" doc:"Page served"`
	PageSize   int              `json:"page_size" doc:"Records per page"`
	TotalPages int              `json:"total_pages" doc:"Number of pages, at least 1"`
	Total      int              `json:"total" doc:"Total records for the query"`
	Cached     bool             `json:"cached" doc:"Whether the results came from cache"`
}

// SearchOutput wraps the search response.
type SearchOutput struct {
	Body SearchResponse
}

// InvalidateSearchInput selects what to drop from the cache.
type InvalidateSearchInput struct {
	Subject    string `query:"subject" doc:"Subject to invalidate, omit to clear everything"`
	Collection string `query:"collection" doc:"Collection of the query to invalidate"`
}

// ResolveTagsInput contains parameters for tag resolution.
type ResolveTagsInput struct {
	Subject    string `query:"subject" doc:"Character or subject name"`
	Collection string `query:"collection" doc:"Series or franchise the subject belongs to"`
}

// ResolveTagsResponse explains how a query resolves.
type ResolveTagsResponse struct {
	Subject       string   `json:"subject" doc:"Subject as given"`
	CollectionTag string   `json:"collection_tag,omitempty" doc:"Collection translated to its provider tag"`
	Probed        string   `json:"probed,omitempty" doc:"Best tag found by the live probe"`
	ProbeScore    int      `json:"probe_score,omitempty" doc:"Score of the probed tag"`
	Candidates    []string `json:"candidates" doc:"Tags tried in order"`
}

// ResolveTagsOutput wraps the resolution.
type ResolveTagsOutput struct {
	Body ResolveTagsResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	result, err := s.services.Search.Search(ctx, input.Subject, optional(input.Collection), input.Page, input.PageSize)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SearchOutput{Body: toSearchResponse(result)}, nil
}

func (s *Server) handleInvalidateSearch(ctx context.Context, input *InvalidateSearchInput) (*struct{}, error) {
	var err error
	if input.Subject == "" && input.Collection == "" {
		err = s.services.Search.Clear(ctx)
	} else {
		err = s.services.Search.Invalidate(ctx, input.Subject, optional(input.Collection))
	}
	if err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}

func (s *Server) handleResolveTags(ctx context.Context, input *ResolveTagsInput) (*ResolveTagsOutput, error) {
	res, err := s.services.Search.Resolve(ctx, input.Subject, optional(input.Collection))
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ResolveTagsOutput{Body: toResolveResponse(res)}, nil
}

// === Mappers ===

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toSearchResponse(r *service.Result) SearchResponse {
	records := make([]RecordResponse, len(r.Records))
	for i, rec := range r.Records {
		records[i] = toRecordResponse(rec)
	}
	return SearchResponse{
		Key:        r.Key.String(),
		Records:    records,
		Page:       r.Page,
		PageSize:   r.PageSize,
		TotalPages: r.TotalPages,
		Total:      r.Total,
		Cached:     r.Cached,
	}
}

func toRecordResponse(r domain.MediaRecord) RecordResponse {
	tagList := r.Tags
	if tagList == nil {
		tagList = []string{}
	}
	return RecordResponse{
		ID:           r.ID,
		Source:       r.Source,
		CanonicalURL: r.CanonicalURL,
		PreviewURL:   r.PreviewURL,
		Tags:         tagList,
		Score:        r.Score,
		Width:        r.Width,
		Height:       r.Height,
	}
}

func toResolveResponse(r *tags.Resolution) ResolveTagsResponse {
	candidates := r.Candidates
	if candidates == nil {
		candidates = []string{}
	}
	return ResolveTagsResponse{
		Subject:       r.Subject,
		CollectionTag: r.CollectionTag,
		Probed:        r.Probed,
		ProbeScore:    r.ProbeScore,
		Candidates:    candidates,
	}
}
