// Package service is the caller-facing façade over the aggregation engine.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/listenupapp/artfetch/internal/domain"
	"github.com/listenupapp/artfetch/internal/tags"
	"github.com/listenupapp/artfetch/internal/validation"
)

// Page size bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Aggregator produces ranked supersets.
type Aggregator interface {
	Superset(ctx context.Context, subject string, collection *string) (domain.SearchEntry, bool, error)
	Invalidate(ctx context.Context, subject string, collection *string) error
	Clear(ctx context.Context) error
}

// Explainer reports how a query resolves to tag candidates.
type Explainer interface {
	Explain(ctx context.Context, subject string, collection *string) tags.Resolution
}

// SearchParams is a validated search request.
type SearchParams struct {
	Subject    string  `json:"subject" validate:"notblank,max=200"`
	Collection *string `json:"collection,omitempty" validate:"omitempty,max=200"`
	Page       int     `json:"page" validate:"gte=1"`
	PageSize   int     `json:"page_size" validate:"gte=1,lte=100"`
}

// Result is one page of a query's superset.
type Result struct {
	Key        domain.QueryKey      `json:"key"`
	Records    []domain.MediaRecord `json:"records"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
	Total      int                  `json:"total"`
	Cached     bool                 `json:"cached"`
}

// SearchService validates queries and slices cached supersets into pages.
type SearchService struct {
	aggregator Aggregator
	explainer  Explainer
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewSearchService creates a search service. explainer may be nil.
func NewSearchService(aggregator Aggregator, explainer Explainer, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		aggregator: aggregator,
		explainer:  explainer,
		validator:  validation.New(),
		logger:     logger,
	}
}

// Search returns one page of results for the query. A page past the end
// is clamped to the last page. Only invalid input and the caller's
// context ending produce an error.
func (s *SearchService) Search(ctx context.Context, subject string, collection *string, page, pageSize int) (*Result, error) {
	params := SearchParams{
		Subject:    subject,
		Collection: normalizeCollection(collection),
		Page:       page,
		PageSize:   pageSize,
	}
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}

	entry, cached, err := s.aggregator.Superset(ctx, params.Subject, params.Collection)
	if err != nil {
		return nil, err
	}

	p := domain.Paginate(entry.Records, params.Page, params.PageSize)

	s.logger.Debug("search served",
		"key", entry.Key,
		"page", p.Page,
		"total_pages", p.TotalPages,
		"cached", cached,
	)

	return &Result{
		Key:        entry.Key,
		Records:    p.Records,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		Total:      p.Total,
		Cached:     cached,
	}, nil
}

// Resolve explains how the query maps to tag candidates without fetching.
func (s *SearchService) Resolve(ctx context.Context, subject string, collection *string) (*tags.Resolution, error) {
	params := SearchParams{Subject: subject, Collection: normalizeCollection(collection), Page: 1, PageSize: 1}
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}
	if s.explainer == nil {
		res := tags.Resolution{Subject: params.Subject, Candidates: []string{}}
		return &res, nil
	}
	res := s.explainer.Explain(ctx, params.Subject, params.Collection)
	return &res, nil
}

// Invalidate drops the cached superset for the query.
func (s *SearchService) Invalidate(ctx context.Context, subject string, collection *string) error {
	params := SearchParams{Subject: subject, Collection: normalizeCollection(collection), Page: 1, PageSize: 1}
	if err := s.validator.Validate(params); err != nil {
		return err
	}
	if err := s.aggregator.Invalidate(ctx, params.Subject, params.Collection); err != nil {
		return err
	}
	s.logger.Info("search cache entry invalidated", "key", domain.NewQueryKey(params.Subject, params.Collection))
	return nil
}

// Clear drops every cached superset.
func (s *SearchService) Clear(ctx context.Context) error {
	if err := s.aggregator.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("search cache cleared")
	return nil
}

// normalizeCollection treats a blank collection as absent.
func normalizeCollection(c *string) *string {
	if c == nil || strings.TrimSpace(*c) == "" {
		return nil
	}
	return c
}
