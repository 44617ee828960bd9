// Package searcher executes searches for one tenant and caches the ready
// searchers per tenant.
package searcher

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/pagination"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/tracing"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/facet"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/mapper"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/params"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/querybuilder"
)

// MainSliceLabel labels the slice holding the regular result.
const MainSliceLabel = "default"

// innerHitsSize bounds the variants returned per master hit.
const innerHitsSize = 10

// Searcher runs searches against the index of one tenant. It is immutable
// and safe for concurrent use.
type Searcher struct {
	cfg    *domain.SearchConfiguration
	engine engine.Engine
	facets *facet.Builder
	mapper *mapper.ResultMapper
	logger *slog.Logger
}

// New creates a searcher for sc.
func New(sc *domain.SearchConfiguration, eng engine.Engine, logger *slog.Logger) *Searcher {
	return &Searcher{
		cfg:    sc,
		engine: eng,
		facets: facet.NewBuilder(sc),
		mapper: mapper.New(mapper.StrategyByName(sc.VariantPicking)),
		logger: logger.With(slog.String("tenant", sc.Tenant)),
	}
}

// Config returns the configuration the searcher was built from.
func (s *Searcher) Config() *domain.SearchConfiguration {
	return s.cfg
}

// Search runs p and assembles the result with facets, links and sort
// options.
func (s *Searcher) Search(ctx context.Context, p *domain.InternalSearchParams) (res *domain.SearchResult, err error) {
	ctx, end := tracing.Start(ctx, "searcher.Search",
		attribute.String("search.tenant", s.cfg.Tenant),
		attribute.String("search.index", s.cfg.IndexName),
	)
	defer func() { end(err) }()

	start := time.Now()
	req := s.BuildRequest(p)
	resp, err := s.engine.Search(ctx, s.cfg.IndexName, req)
	if err != nil {
		return nil, err
	}

	lb := params.NewLinkBuilder(p)
	page := pagination.Params{Limit: p.Limit, Offset: p.Offset}
	slice := domain.SearchResultSlice{
		Label:      MainSliceLabel,
		MatchCount: resp.Total,
		NextOffset: page.Next(),
		ResultLink: lb.Link(),
		Hits:       make([]domain.ResultHit, 0, len(resp.Hits)),
		Facets:     s.facets.Facets(p, resp.Aggregations, lb),
	}
	if page.HasNext(resp.Total) {
		slice.NextLink = lb.WithOffsetAsLink(slice.NextOffset)
	}
	for _, hit := range resp.Hits {
		slice.Hits = append(slice.Hits, s.mapper.MapHit(hit, p.Sortings))
	}

	res = &domain.SearchResult{
		Slices:       []domain.SearchResultSlice{slice},
		SortOptions:  s.sortOptions(lb),
		TookInMillis: time.Since(start).Milliseconds(),
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", p.UserQuery),
		slog.Int64("total", resp.Total),
		slog.Int("filters", len(p.Filters)),
		slog.Int64("engine_took_ms", resp.TookMillis),
	)
	return res, nil
}

// BuildRequest composes the engine request for p.
//
// Filters on facets that must keep showing their other options go into the
// post filter, the rest narrow the query. Variant filters must all hold on
// the same variant; the matching variants come back as the "variants"
// inner hits. The text query matches masters or any variant.
func (s *Searcher) BuildRequest(p *domain.InternalSearchParams) *engine.Request {
	var queryFilters, postFilters []domain.ResultFilter
	for _, f := range p.Filters {
		if s.facets.IsPostFilter(f.FilterField().Name) {
			postFilters = append(postFilters, f)
		} else {
			queryFilters = append(queryFilters, f)
		}
	}
	split := querybuilder.SplitFilters(queryFilters)

	var text querybuilder.TextQuery
	if p.UserQuery != "" {
		text = querybuilder.BuildTextQuery(p.UserQuery, s.cfg.QueryConfigs, s.cfg.Fields)
	}

	variantHits := &engine.InnerHits{Name: domain.InnerHitsVariants, Size: innerHitsSize}
	q := engine.Bool{Filter: split.Master}

	switch {
	case len(split.Variant) > 0:
		inner := engine.Bool{Filter: split.Variant}
		if text.Variant != nil {
			inner.Should = []engine.Query{*text.Variant}
		}
		if clause := textClause(text, nil); clause != nil {
			q.Must = append(q.Must, clause)
		}
		q.Must = append(q.Must, engine.Nested{Path: domain.Variants, Query: inner, InnerHits: variantHits})
	case text.Variant != nil:
		q.Must = append(q.Must, textClause(text, variantHits))
	default:
		if clause := textClause(text, nil); clause != nil {
			q.Must = append(q.Must, clause)
		}
		q.Should = append(q.Should, engine.Nested{Path: domain.Variants, Query: engine.MatchAll{}, InnerHits: variantHits})
	}
	if len(q.Must) == 0 {
		q.Must = []engine.Query{engine.MatchAll{}}
	}
	if s.mapper.NeedsTotalCount() {
		q.Should = append(q.Should, engine.Nested{
			Path:      domain.Variants,
			Query:     engine.MatchAll{},
			InnerHits: &engine.InnerHits{Name: domain.InnerHitsAll, Size: 0},
		})
	}

	req := &engine.Request{
		Query:        querybuilder.WithScoring(q, s.cfg.ScoringConfiguration),
		Aggregations: s.facets.Aggregations(p),
		Sort:         querybuilder.SortFields(p.Sortings),
		From:         p.Offset,
		Size:         p.Limit,
	}
	if len(postFilters) > 0 {
		post := querybuilder.SplitFilters(postFilters)
		pf := engine.Bool{Filter: post.Master}
		if len(post.Variant) > 0 {
			pf.Filter = append(pf.Filter, engine.Nested{Path: domain.Variants, Query: engine.Bool{Filter: post.Variant}})
		}
		req.PostFilter = pf
	}
	return req
}

// textClause returns the text query matching either the master or one of
// its variants, or nil without a text query. hits is attached to the
// variant part.
func textClause(text querybuilder.TextQuery, hits *engine.InnerHits) engine.Query {
	var should []engine.Query
	if text.Master != nil {
		should = append(should, *text.Master)
	}
	if text.Variant != nil {
		should = append(should, engine.Nested{Path: domain.Variants, Query: *text.Variant, InnerHits: hits})
	}
	switch len(should) {
	case 0:
		return nil
	case 1:
		return should[0]
	}
	return engine.Bool{Should: should, MinimumShouldMatch: 1}
}

func (s *Searcher) sortOptions(lb *params.LinkBuilder) []domain.SortOption {
	out := make([]domain.SortOption, 0, len(s.cfg.SortConfigs))
	for _, sc := range s.cfg.SortConfigs {
		sorting := domain.Sorting{Field: sc.Field, Order: sc.Order}
		label := sc.Label
		if label == "" {
			label = sc.Field
		}
		out = append(out, domain.SortOption{
			Field:    sc.Field,
			Order:    sc.Order,
			Label:    label,
			Link:     lb.WithSortAsLink(sorting),
			Selected: lb.IsSortSelected(sorting),
		})
	}
	return out
}

// Document returns the indexed product with the given id in its original
// form.
func (s *Searcher) Document(ctx context.Context, id string) (*domain.Product, error) {
	source, found, err := s.engine.Get(ctx, s.cfg.IndexName, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("document", id)
	}
	p := mapper.MapToOriginalDocument(id, source)
	return &p, nil
}
